package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2024-05-01T10:30:00Z", want},
		{"2024-05-01T12:30:00+02:00", want},
		{"2024-05-01 10:30:00 UTC", want},
		{"2024-05-01 10:30:00", want},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"20240501", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseTimestamp(tt.raw)
			if err != nil {
				t.Fatalf("parseTimestamp failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, err := parseTimestamp("yesterday"); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
}

func TestReadOrdersCSV_MissingColumn(t *testing.T) {
	_, err := ReadOrdersCSV(strings.NewReader("order_id,order_date\no1,2024-05-01\n"))
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
}

func TestReadOrdersCSV_BadRevenue(t *testing.T) {
	_, err := ReadOrdersCSV(strings.NewReader("order_id,order_date,product_ids,revenue\no1,2024-05-01,A,lots\n"))
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
}

func TestReadContextCSVs(t *testing.T) {
	events, err := ReadEventsCSV(strings.NewReader("product_id,timestamp\nA,20240501\nB,2024-05-02T01:00:00Z\n"))
	if err != nil {
		t.Fatalf("ReadEventsCSV failed: %v", err)
	}
	if len(events) != 2 || events[1].ProductID != "B" {
		t.Errorf("unexpected events %+v", events)
	}

	users, err := ReadUsersCSV(strings.NewReader("user_id,created_at\nu1,2024-05-01\n"))
	if err != nil {
		t.Fatalf("ReadUsersCSV failed: %v", err)
	}
	if len(users) != 1 || users[0].UserID != "u1" {
		t.Errorf("unexpected users %+v", users)
	}

	prices, err := ReadPricesCSV(strings.NewReader("product_id,price,name\nA,1.5,x\nB,,y\n"))
	if err != nil {
		t.Fatalf("ReadPricesCSV failed: %v", err)
	}
	if len(prices) != 1 || prices["A"] != 1.5 {
		t.Errorf("unexpected prices %v", prices)
	}
}
