package main

import (
	"testing"

	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/model"
)

func TestParseIconSpec(t *testing.T) {
	req, err := parseIconSpec("my-icon=12345")
	if err != nil {
		t.Fatalf("parsing valid spec: %v", err)
	}
	if req.Label != "my-icon" || req.IconID != 12345 {
		t.Errorf("unexpected request: %+v", req)
	}

	invalid := []string{"", "noequals", "=123", "name=", "name=abc", "name=0", "name=-5"}
	for _, spec := range invalid {
		if _, err := parseIconSpec(spec); err == nil {
			t.Errorf("expected %q to be rejected", spec)
		}
	}
}

func TestBuildRequests_DefaultsFirstThenCustoms(t *testing.T) {
	requests, err := buildRequests(true, []string{"extra=777", "another=888"})
	if err != nil {
		t.Fatalf("building requests: %v", err)
	}

	if len(requests) != 5 {
		t.Fatalf("expected 5 requests, got %d", len(requests))
	}
	// Defaults keep their documented order, customs follow in flag order
	want := []model.IconRequest{
		{Label: "stock-up", IconID: 40160},
		{Label: "stock-down", IconID: 40176},
		{Label: "stock-neutral", IconID: 40161},
		{Label: "extra", IconID: 777},
		{Label: "another", IconID: 888},
	}
	for i, w := range want {
		if requests[i] != w {
			t.Errorf("request %d: expected %+v, got %+v", i, w, requests[i])
		}
	}
}

func TestBuildRequests_CustomsOnly(t *testing.T) {
	requests, err := buildRequests(false, []string{"solo=1"})
	if err != nil {
		t.Fatalf("building requests: %v", err)
	}
	if len(requests) != 1 || requests[0].Label != "solo" {
		t.Errorf("unexpected requests: %+v", requests)
	}
}

func TestBuildRequests_InvalidCustomFails(t *testing.T) {
	if _, err := buildRequests(true, []string{"bad=not-a-number"}); err == nil {
		t.Error("expected error for invalid custom icon")
	}
}

func TestBuildRequests_Empty(t *testing.T) {
	requests, err := buildRequests(false, nil)
	if err != nil {
		t.Fatalf("building requests: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("expected empty request list, got %+v", requests)
	}
}
