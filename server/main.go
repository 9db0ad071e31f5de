package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ponyo877/codesh/server/adaptor"
	"github.com/ponyo877/codesh/server/domain"
	"github.com/ponyo877/codesh/server/usecase"
)

func main() {
	port := flag.Int("port", 5000, "listen port")
	flag.Parse()

	registry := domain.NewRegistry()
	uc := usecase.NewUsecase(registry)
	ad := adaptor.NewAdaptor(uc)

	r := mux.NewRouter()
	r.HandleFunc("/ws", ad.HandleSocket)
	r.HandleFunc("/healthz", ad.HandleHealth).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("codesh sync server running on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
