// util/json_test.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"strings"
	"testing"
)

type testConfig struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Sizes []int  `json:"sizes"`
}

func TestUnmarshalJSONBytes(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
		want    testConfig
	}{
		{name: "valid", json: `{"name": "Go", "size": 16}`, want: testConfig{Name: "Go", Size: 16}},
		{name: "syntax", json: "{\n  \"name\": \"Go\",\n  \"size\": }", wantErr: "line 3"},
		{name: "type", json: "{\n\"size\": \"big\"}", wantErr: "line 2"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var c testConfig
			err := UnmarshalJSONBytes([]byte(test.json), &c)
			if test.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", test.wantErr)
				}
				if !strings.Contains(err.Error(), test.wantErr) {
					t.Errorf("error %q does not mention %q", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Name != test.want.Name || c.Size != test.want.Size {
				t.Errorf("got %+v, expected %+v", c, test.want)
			}
		})
	}
}

func TestUnmarshalStrictJSON(t *testing.T) {
	var c testConfig
	if err := UnmarshalStrictJSON([]byte(`{"name": "a", "sizez": [1]}`), &c); err == nil {
		t.Errorf("expected unknown field error")
	} else if !strings.Contains(err.Error(), "sizez") {
		t.Errorf("error %q should name the unknown field", err)
	}

	if err := UnmarshalStrictJSON([]byte(`{"name": "a", "sizes": [1, 2]}`), &c); err != nil {
		t.Errorf("unexpected error: %v", err)
	} else if len(c.Sizes) != 2 {
		t.Errorf("expected 2 sizes, got %d", len(c.Sizes))
	}
}

func TestCheckJSON(t *testing.T) {
	var e ErrorLogger
	e.Push("config.json")
	c := CheckJSON[testConfig]([]byte(`{"size": 12}`), &e)
	if e.HaveErrors() || c.Size != 12 {
		t.Errorf("unexpected result %+v, errors %s", c, e.String())
	}

	CheckJSON[testConfig]([]byte(`{"size": `), &e)
	if !e.HaveErrors() {
		t.Fatalf("expected error")
	}
	if !strings.HasPrefix(e.String(), "config.json: ") {
		t.Errorf("error %q missing hierarchy prefix", e.String())
	}
	e.Pop()
	if e.CurrentDepth() != 0 {
		t.Errorf("expected depth 0, got %d", e.CurrentDepth())
	}
}
