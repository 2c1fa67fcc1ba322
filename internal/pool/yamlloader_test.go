package pool_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

const validPoolYAML = `
splits:
  - name: train
    pools:
      PHONE: ["9876543210", "9123456789"]
      CITY: ["Pune"]
    templates:
      - text: "call me at {PHONE} in {CITY}"
        labels: [PHONE, CITY]
  - name: dev
    pools:
      PHONE: ["7700112233"]
    templates:
      - text: "my number is {PHONE}"
        labels: [PHONE]
`

func TestLoadFromReader(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: validPoolYAML},
		{
			name:    "unknown field",
			input:   "splits: []\nextra: 1\n",
			wantErr: true,
		},
		{
			name:    "no splits",
			input:   "splits: []\n",
			wantErr: true,
		},
		{
			name: "unknown label",
			input: `
splits:
  - name: train
    pools:
      SSN: ["123"]
    templates: []
`,
			wantErr: true,
		},
		{
			name: "malformed template",
			input: `
splits:
  - name: train
    pools:
      PHONE: ["1"]
    templates:
      - text: "call {PHONE}"
        labels: []
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := pool.LoadFromReader(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromReader: %v", err)
			}
			splits := p.Splits()
			if len(splits) != 2 || splits[0] != "train" || splits[1] != "dev" {
				t.Fatalf("Splits() = %v", splits)
			}
			ep, templates, err := p.Pools("train")
			if err != nil {
				t.Fatalf("Pools: %v", err)
			}
			if len(ep[pool.LabelPhone]) != 2 {
				t.Errorf("phone pool = %v", ep[pool.LabelPhone])
			}
			if len(templates) != 1 || len(templates[0].Labels) != 2 {
				t.Errorf("templates = %+v", templates)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.yaml")
	if err := os.WriteFile(path, []byte(validPoolYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := pool.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, _, err := p.Pools("missing"); !errors.Is(err, pool.ErrUnknownSplit) {
		t.Errorf("expected ErrUnknownSplit, got %v", err)
	}

	if _, err := pool.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
