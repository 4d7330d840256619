package main

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestSayArgs(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		want    []string
		wantErr bool
	}{
		{
			name: "defaults",
			req:  Request{Action: "sentence", Text: "Good night"},
			want: []string{"--", "Good night"},
		},
		{
			name: "config voice with params rate",
			req: Request{
				Action: "sentence",
				Text:   "Hi",
				Config: json.RawMessage(`{"voice":"Samantha","rate":120}`),
				Params: json.RawMessage(`{"rate":200}`),
			},
			want: []string{"-v", "Samantha", "-r", "200", "--", "Hi"},
		},
		{name: "empty text", req: Request{Action: "sentence"}, wantErr: true},
		{name: "unknown action", req: Request{Action: "beep", Text: "x"}, wantErr: true},
		{name: "bad params", req: Request{Action: "word", Text: "x", Params: json.RawMessage(`[1]`)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sayArgs(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("sayArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("sayArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}
