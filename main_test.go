package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/speakidol/persona"
)

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug", "json")
	if err != nil {
		t.Fatal(err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("formatter = %T", log.Formatter)
	}
	if _, err := newLogger("loud", "text"); err == nil {
		t.Fatal("bad level should fail")
	}
	if _, err := newLogger("info", "xml"); err == nil {
		t.Fatal("bad format should fail")
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	path := writeConfig(t, "coach:\n  strategy: rest\n  api_key: hunter2\n")
	out := execute(t, "config", "--config", path)
	if strings.Contains(out, "hunter2") || !strings.Contains(out, "***") {
		t.Fatalf("output:\n%s", out)
	}
	if !strings.Contains(out, "strategy: rest") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestPersonasShowAndList(t *testing.T) {
	meta := filepath.Join(t.TempDir(), "personas_meta.json")
	store, err := persona.OpenJSON(meta)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, id := range []string{"grace", "ada"} {
		if err := store.Put(ctx, &persona.Profile{ID: id, Prosody: persona.Prosody{MeanPitch: 180, WPM: 140}}); err != nil {
			t.Fatal(err)
		}
	}
	path := writeConfig(t, "personas:\n  store: json\n  path: "+meta+"\n")

	out := execute(t, "personas", "show", "ADA", "--config", path)
	if !strings.Contains(out, `"mean_pitch": 180`) {
		t.Fatalf("show output:\n%s", out)
	}
	out = execute(t, "personas", "list", "--config", path)
	if out != "ada\ngrace\n" {
		t.Fatalf("list output = %q", out)
	}
}
