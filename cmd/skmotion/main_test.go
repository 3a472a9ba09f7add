package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"skmotion/internal/config"
	"skmotion/internal/testsupport"
)

func TestDisplaysCommandListsDisplays(t *testing.T) {
	env := setupCLITestEnv(t)
	env.source.List = append(env.source.List, env.source.List[0])
	env.source.List[1].Index = 1
	env.source.List[1].Width = 1920

	out, _, err := runCLI(t, env, "displays")
	if err != nil {
		t.Fatalf("displays: %v", err)
	}
	requireContains(t, out, "Index")
	requireContains(t, out, "1920")

	out, _, err = runCLI(t, env, "--displays")
	if err != nil {
		t.Fatalf("--displays: %v", err)
	}
	requireContains(t, out, "1920")
}

func TestRecordWithoutDisplaysExitsCleanly(t *testing.T) {
	env := setupCLITestEnv(t)
	env.source.List = nil
	out, _, err := runCLI(t, env, "record")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	requireContains(t, out, "No displays found.")
}

func TestRecordPrintsSummaryAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(filepath.Dir(env.cfg.Recording.Output), "motion.webm")

	out, _, err := runCLI(t, env, "record", target, "--codec", "vp8", "-n", "0.01")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	requireContains(t, out, "Saved frames: ")
	requireContains(t, out, "Skipped frames: ")
	requireContains(t, out, "File: "+target)
	if env.muxer.Codec() != "vp8" {
		t.Fatalf("codec flag not applied, muxer got %q", env.muxer.Codec())
	}

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "interrupted")
	requireContains(t, out, target)

	out, _, err = runCLI(t, env, "history", "--json", "--status", "interrupted")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var entries []historyEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history json: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Destination != target || entries[0].Codec != "vp8" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	out, _, err = runCLI(t, env, "history", "clear")
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Removed 1 session(s).")
}

func TestRecordRejectsOutputTwice(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "record", "a.webm", "--output", "b.webm"); err == nil {
		t.Fatal("expected error when output is given twice")
	}
}

func TestRecordRefusesExistingFile(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.Recording.Output, 8)
	_, _, err := runCLI(t, env, "--overwrite", "fail")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected exists error, got %v", err)
	}
}

func TestHistoryRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "history", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestRecordFlagsApply(t *testing.T) {
	env := setupCLITestEnv(t)
	cmd := &cobra.Command{Use: "record"}
	flags := &recordFlags{}
	flags.bind(cmd)
	if err := cmd.ParseFlags([]string{"-s", "1", "-e", "30", "-r", "2", "-f", "10", "-b", "900", "--queue", "LIFO", "--timestamps", "wallclock"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	cfg, err := flags.apply(cmd, []string{"~/clips/out.mkv"}, env.cfg)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	r := cfg.Recording
	if r.Display != 1 || r.ExtentSeconds != 30 || r.Resilience != 2 || r.FPS != 10 || r.Bitrate != 900 {
		t.Fatalf("numeric flags not applied: %+v", r)
	}
	if r.QueueDiscipline != config.QueueLIFO || r.Timestamps != config.TimestampsWallclock {
		t.Fatalf("mode flags not applied: %+v", r)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	if r.Output != filepath.Join(home, "clips", "out.mkv") {
		t.Fatalf("output = %q", r.Output)
	}
	if r.Sensitivity != env.cfg.Recording.Sensitivity {
		t.Fatal("unset flags must keep config values")
	}
	if env.cfg.Recording.Display == 1 {
		t.Fatal("apply must not modify the loaded config")
	}
}

func TestConfigInitShowValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists")
	}

	out, _, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[recording]")
	requireContains(t, out, env.cfg.Recording.Output)

	out, _, err = runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Output configured: yes")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No recorded sessions.")
}

func TestSensitivityHelpDescribesByteThreshold(t *testing.T) {
	cmd := newRoot(commandDeps{})
	for _, c := range []*cobra.Command{cmd, mustFind(t, cmd, "record")} {
		flag := c.Flags().Lookup("sensitivity")
		if flag == nil {
			t.Fatalf("%s: missing --sensitivity", c.Name())
		}
		requireContains(t, flag.Usage, "frame bytes that may differ")
	}
}

func mustFind(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()
	cmd, _, err := root.Find([]string{name})
	if err != nil {
		t.Fatalf("find %s: %v", name, err)
	}
	return cmd
}
