/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ponyo877/codesh/cli/collab"
	"github.com/ponyo877/codesh/wire"
)

const (
	dialAttempts = 10
	dialBackoff  = time.Second
)

// editCmd represents the edit command
var editCmd = &cobra.Command{
	Use:   "edit [session_token]",
	Short: "Opens a collaborative editing session in a tview-based interface",
	Long: `Joins the session named by the token (creating it if nobody is there
yet) and opens a shared editor. Everyone in the session sees the same
document; remote cursors, per-author editing highlights and recent remote
changes are shown in the side panel.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]
		language, _ := cmd.Flags().GetString("language")

		if err := runEditorUI(viper.GetString(serverURLKey), sessionID, language); err != nil {
			fmt.Fprintf(os.Stderr, "Editor UI error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringP("language", "l", "", "Language tag to set for the session on join (optional)")
}

// editorSurface adapts a tview TextArea to the reconciler's widget
// contract, preserving cursor and scroll position across remote updates
// where possible.
type editorSurface struct {
	ta *tview.TextArea
}

func (s *editorSurface) Value() string {
	return s.ta.GetText()
}

func (s *editorSurface) SetValue(text string) {
	_, start, _ := s.ta.GetSelection()
	row, col := s.ta.GetOffset()
	s.ta.SetText(text, false)
	if l := s.ta.GetTextLength(); start > l {
		start = l
	}
	s.ta.Select(start, start)
	s.ta.SetOffset(row, col)
}

func (s *editorSurface) Selection() (int, int) {
	fromRow, _, toRow, _ := s.ta.GetCursor()
	if toRow < fromRow {
		fromRow, toRow = toRow, fromRow
	}
	return fromRow + 1, toRow + 1
}

type sessionSender struct {
	client    *collab.Client
	sessionID string
}

func (s sessionSender) SendCodeUpdate(code string) {
	s.client.SendCodeUpdate(s.sessionID, code)
}

func (s sessionSender) SendActivity(startLine, endLine int) {
	s.client.SendActivity(s.sessionID, startLine, endLine)
}

type editorUI struct {
	app       *tview.Application
	textArea  *tview.TextArea
	panel     *tview.TextView
	status    *tview.TextView
	client    *collab.Client
	rec       *collab.Reconciler
	tracker   *collab.Tracker
	changes   *collab.ChangeLog
	cursors   *collab.CursorMap
	sessionID string
	roster    []wire.User
	language  *string
}

func runEditorUI(serverURL, sessionID, language string) error {
	client, err := collab.Dial(serverURL, dialAttempts, dialBackoff)
	if err != nil {
		return err
	}
	defer client.Close()

	app := tview.NewApplication()

	textArea := tview.NewTextArea()
	textArea.SetBorder(true).SetTitle(fmt.Sprintf(" %s ", sessionID))

	panel := tview.NewTextView().SetDynamicColors(true).SetWordWrap(true)
	panel.SetBorder(true).SetTitle(" collaborators ")

	status := tview.NewTextView().SetDynamicColors(true)

	flex := tview.NewFlex().
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(textArea, 0, 1, true).
			AddItem(status, 1, 0, false), 0, 3, true).
		AddItem(panel, 32, 0, false)

	app.SetRoot(flex, true).SetFocus(textArea)

	ui := &editorUI{
		app:       app,
		textArea:  textArea,
		panel:     panel,
		status:    status,
		client:    client,
		sessionID: sessionID,
	}
	ui.tracker = collab.NewTracker(collab.HighlightTTL, func(string) {
		app.QueueUpdateDraw(ui.renderPanel)
	})
	ui.changes = collab.NewChangeLog(collab.RecentChangeLimit, collab.RecentChangeTTL, func() {
		app.QueueUpdateDraw(ui.renderPanel)
	})
	ui.cursors = collab.NewCursorMap()

	surface := &editorSurface{ta: textArea}
	sender := sessionSender{client: client, sessionID: sessionID}
	ui.rec = collab.NewReconciler(surface, sender, ui.tracker, ui.changes, ui.cursors)

	textArea.SetChangedFunc(func() {
		ui.rec.HandleLocalChange()
		ui.renderStatus()
	})

	client.Start(collab.Handlers{
		OnUserJoined: func(ev wire.UserJoined) {
			app.QueueUpdateDraw(func() {
				// The first roster broadcast after our join names us.
				ui.rec.SetSelf(ev.JoinedUser.ID)
				ui.roster = ev.Users
				ui.renderPanel()
				ui.renderStatus()
			})
		},
		OnSessionData: func(ev wire.SessionData) {
			app.QueueUpdateDraw(func() {
				ui.rec.Seed(ev)
				ui.language = ev.Language
				ui.renderStatus()
			})
		},
		OnCodeUpdated: func(ev wire.CodeUpdated) {
			app.QueueUpdateDraw(func() {
				ui.rec.HandleCodeUpdated(ev)
				ui.renderPanel()
				ui.renderStatus()
			})
		},
		OnLanguageChanged: func(ev wire.LanguageChanged) {
			app.QueueUpdateDraw(func() {
				ui.language = ev.Language
				ui.renderStatus()
			})
		},
		OnRemoteCursor: func(ev wire.RemoteCursor) {
			app.QueueUpdateDraw(func() {
				ui.rec.HandleRemoteCursor(ev)
				ui.renderPanel()
			})
		},
		OnEditActivity: func(ev wire.ActivityBroadcast) {
			app.QueueUpdateDraw(func() {
				ui.rec.HandleEditActivity(ev)
				ui.renderPanel()
			})
		},
		OnUserLeft: func(ev wire.UserLeft) {
			app.QueueUpdateDraw(func() {
				ui.rec.HandleUserLeft(ev.UserID)
				ui.roster = ev.RemainingUsers
				ui.renderPanel()
				ui.renderStatus()
			})
		},
		OnClosed: func(err error) {
			app.QueueUpdateDraw(func() {
				ui.status.SetText("[red]connection closed, rejoin to resume[-]")
			})
		},
	})

	client.Join(sessionID)
	if language != "" {
		client.SendLanguageChange(sessionID, &language)
	}

	// The TextArea has no cursor-moved callback, so cursor reports are
	// polled. The server throttles them per connection anyway.
	stopPolling := make(chan struct{})
	go ui.pollCursor(stopPolling)

	// Exit on Ctrl+C; local teardown only, the server cleans up when the
	// socket closes.
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			app.Stop()
			return nil
		}
		return event
	})

	err = app.Run()
	close(stopPolling)
	return err
}

func (ui *editorUI) pollCursor(stop <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var lastRow, lastCol = -1, -1
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ui.app.QueueUpdate(func() {
				row, col, _, _ := ui.textArea.GetCursor()
				if row == lastRow && col == lastCol {
					return
				}
				lastRow, lastCol = row, col
				ui.client.SendCursor(ui.sessionID, wire.Position{
					LineNumber: row + 1,
					Column:     col + 1,
				})
			})
		}
	}
}

func (ui *editorUI) renderStatus() {
	lang := "plain"
	if ui.language != nil {
		lang = *ui.language
	}
	ui.status.SetText(fmt.Sprintf(" [yellow]%s[-] · v%d · %d online · %s · Ctrl+C to leave",
		ui.sessionID, ui.rec.Version(), len(ui.roster), lang))
}

func (ui *editorUI) renderPanel() {
	ui.panel.Clear()

	fmt.Fprintf(ui.panel, "[::b]Collaborators[-:-:-]\n")
	for _, u := range ui.roster {
		marker := ""
		if u.ID == ui.rec.Self() {
			marker = " (you)"
		}
		fmt.Fprintf(ui.panel, "%s●[-] %s%s\n", displayColor(u.Color), shortID(u.ID), marker)
	}

	cursors := ui.cursors.All()
	if len(cursors) > 0 {
		fmt.Fprintf(ui.panel, "\n[::b]Cursors[-:-:-]\n")
		for author, pos := range cursors {
			fmt.Fprintf(ui.panel, "%s%s[-] %d:%d\n",
				ui.colorOf(author), shortID(author), pos.LineNumber, pos.Column)
		}
	}

	active := ui.tracker.Active()
	if len(active) > 0 {
		fmt.Fprintf(ui.panel, "\n[::b]Editing now[-:-:-]\n")
		for _, h := range active {
			fmt.Fprintf(ui.panel, "%s%s[-] %s\n",
				ui.colorOf(h.Author), shortID(h.Author), lineInfo(h.Lines))
		}
	}

	recent := ui.changes.Recent()
	if len(recent) > 0 {
		fmt.Fprintf(ui.panel, "\n[::b]Recent changes[-:-:-]\n")
		for _, c := range recent {
			fmt.Fprintf(ui.panel, "%s%s[-] %s %s\n[red]- %s[-]\n[green]+ %s[-]\n",
				ui.colorOf(c.Author), shortID(c.Author),
				lineInfo(c.Lines), c.At.Format("15:04:05"),
				firstLine(c.OldText), firstLine(c.NewText))
		}
	}
}

func (ui *editorUI) colorOf(author string) string {
	for _, u := range ui.roster {
		if u.ID == author {
			return displayColor(u.Color)
		}
	}
	return "[white]"
}

// displayColor turns the server's hsl() color string into a tview color
// tag.
func displayColor(hsl string) string {
	var hue int
	if _, err := fmt.Sscanf(hsl, "hsl(%d,", &hue); err != nil {
		return "[white]"
	}
	return fmt.Sprintf("[%s]", colorful.Hsl(float64(hue), 0.7, 0.6).Hex())
}

func shortID(id string) string {
	if len(id) > 5 {
		return "User " + id[:5]
	}
	return "User " + id
}

func lineInfo(lines collab.LineRange) string {
	if lines.StartLine == lines.EndLine {
		return fmt.Sprintf("Line %d", lines.StartLine)
	}
	return fmt.Sprintf("Lines %d-%d", lines.StartLine, lines.EndLine)
}

func firstLine(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			return text[:i] + " …"
		}
	}
	return text
}
