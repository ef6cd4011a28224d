package svc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"pumpradar/internal/infrastructure/config"
)

func newBingXServer(t *testing.T, contracts, tickers string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/openApi/swap/v2/quote/contracts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(contracts))
	})
	mux.HandleFunc("/openApi/swap/v2/quote/ticker", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(tickers))
	})
	return httptest.NewServer(mux)
}

func testConfig(restURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Rest.BaseURL = restURL
	cfg.Symbols.Quote = "USDT"
	cfg.Symbols.MinPrice = 0.0001
	cfg.Symbols.MaxPrice = 1.0
	cfg.Feed.GroupSize = 1
	cfg.Notify.Buffer = 8
	cfg.Notify.TimeoutSec = 1
	return cfg
}

func TestServiceContextDiscoversSymbols(t *testing.T) {
	srv := newBingXServer(t,
		`{"code":0,"data":[{"symbol":"WIF-USDT"},{"symbol":"BTC-USDT"},{"symbol":"DOGE-USDT"}]}`,
		`{"code":0,"data":[{"symbol":"WIF-USDT","lastPrice":"1.0"},{"symbol":"BTC-USDT","lastPrice":"65000"},{"symbol":"DOGE-USDT","lastPrice":"0.12"}]}`,
	)
	defer srv.Close()

	sc, err := New(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer sc.Close()

	want := []string{"DOGE-USDT", "WIF-USDT"}
	if got := sc.Monitor().Symbols(); !reflect.DeepEqual(got, want) {
		t.Errorf("symbols mismatch: got %v want %v", got, want)
	}

	h, ok := sc.health().(Health)
	if !ok {
		t.Fatalf("unexpected health type %T", sc.health())
	}
	if h.Symbols != 2 || len(h.Groups) != 2 {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestServiceContextConfiguredSymbols(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Symbols.List = []string{"PEPE-USDT"}

	sc, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer sc.Close()

	if got := sc.Monitor().Symbols(); len(got) != 1 || got[0] != "PEPE-USDT" {
		t.Errorf("unexpected symbols: %v", got)
	}
	if sc.Storage().EventRepository() == nil {
		t.Error("event repository should never be nil")
	}
}

func TestServiceContextNoSymbols(t *testing.T) {
	srv := newBingXServer(t,
		`{"code":0,"data":[{"symbol":"BTC-USDT"}]}`,
		`{"code":0,"data":[{"symbol":"BTC-USDT","lastPrice":"65000"}]}`,
	)
	defer srv.Close()

	_, err := New(context.Background(), testConfig(srv.URL))
	if !errors.Is(err, ErrNoSymbols) {
		t.Errorf("expected ErrNoSymbols, got %v", err)
	}
}
