package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/mgxrec/internal/config"
	"github.com/vango-dev/mgxrec/internal/errors"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
)

// run executes the CLI with a fresh config file in dir.
func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(cfgPath); err != nil {
		if err := config.New().SaveTo(cfgPath); err != nil {
			t.Fatalf("SaveTo: %v", err)
		}
	}

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath, "--no-color", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func encode(t *testing.T, meta *protocol.Meta, actions ...protocol.Action) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf, protocol.WriterOptions{})
	if meta != nil {
		if err := w.WriteMeta(meta); err != nil {
			t.Fatalf("WriteMeta: %v", err)
		}
	}
	for _, a := range actions {
		if err := w.WriteAction(a); err != nil {
			t.Fatalf("WriteAction(%T): %v", a, err)
		}
	}
	return buf.Bytes()
}

func mustFrame(t *testing.T, c protocol.Command, worldTime uint32) *protocol.Frame {
	t.Helper()
	f, err := protocol.NewFrame(c, worldTime)
	if err != nil {
		t.Fatalf("NewFrame(%T): %v", c, err)
	}
	return f
}

func sample(t *testing.T) []byte {
	return encode(t, nil,
		&protocol.Time{Elapsed: 1500},
		mustFrame(t, &protocol.Move{Player: 1, Objects: protocol.Objects(7, 8)}, 1500),
		&protocol.Chat{Message: "gg"},
		mustFrame(t, &protocol.Stop{Objects: protocol.ReusePrevious()}, 1600),
	)
}

func unsupported() []byte {
	e := protocol.NewEncoder()
	e.WriteUint32(uint32(protocol.ActionCommand))
	e.WriteUint32(1)
	e.WriteUint8(0x99)
	e.WriteUint32(0)
	return e.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func recErrorCode(err error) string {
	var re *errors.RecError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}

func TestDecode_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "game.mgx", sample(t))

	out, err := run(t, dir, "", "decode", path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	for i, want := range []string{"Time elapsed=1500", "Move world_time=1500 objects=[7 8]", `Chat "gg"`, "Stop world_time=1600 objects=[7 8]"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, want %q", i, lines[i], want)
		}
	}
	if !strings.Contains(lines[1], "0:01.500") {
		t.Errorf("line 1 = %q, want game time 0:01.500", lines[1])
	}
}

func TestDecode_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "game.mgx", sample(t))

	out, err := run(t, dir, "", "decode", "--format", "json", "--only", "stop,chat", path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var records []replay.Record
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var rec replay.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Type != "Chat" || records[1].Command != "Stop" || records[1].Index != 3 {
		t.Errorf("records = %+v", records)
	}
}

func TestDecode_Dump(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "game.mgx", sample(t))

	out, err := run(t, dir, "", "decode", "-f", "dump", path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, want := range []string{"protocol.Move{", "protocol.Chat{", `Message: "gg"`} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestDecode_StdinWithMeta(t *testing.T) {
	v4, chapters := uint32(4), uint32(2)
	data := encode(t, &protocol.Meta{LogVersion: &v4, ChecksumInterval: 500, NumChapters: &chapters},
		&protocol.Time{Elapsed: 10})

	out, err := run(t, t.TempDir(), string(data), "decode", "--meta", "mgx", "-")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(out, "meta format=mgx log_version=4 checksum_interval=500") {
		t.Errorf("output = %q", out)
	}
}

func TestDecode_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.mgx", append(sample(t), unsupported()...))
	unresolved := writeFile(t, dir, "mid.mgx", encode(t, nil,
		mustFrame(t, &protocol.Stop{Objects: protocol.ReusePrevious()}, 0)))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unsupported opcode", []string{"decode", bad}, "R002"},
		{"unresolved selection", []string{"decode", unresolved}, "R021"},
		{"missing file", []string{"decode", filepath.Join(dir, "nope.mgx")}, "E141"},
		{"bad format", []string{"decode", "--format", "xml", bad}, "E140"},
		{"bad meta", []string{"decode", "--meta", "zip", bad}, "E140"},
		{"bad filter", []string{"decode", "--only", "Teleport", bad}, "E140"},
		{"bad log level", []string{"decode", "--log-level", "loud", bad}, "E140"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dir, "", tt.args...)
			if got := recErrorCode(err); got != tt.want {
				t.Fatalf("error = %v (code %q), want code %s", err, got, tt.want)
			}
		})
	}
}

func TestDecode_DecodeErrorLocation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.mgx", append(sample(t), unsupported()...))

	_, err := run(t, dir, "", "decode", path)
	var re *errors.RecError
	if !stderrors.As(err, &re) {
		t.Fatalf("error = %v, want *RecError", err)
	}
	if re.Location == nil || re.Location.File != path || re.Location.Offset < int64(len(sample(t))) {
		t.Errorf("Location = %+v", re.Location)
	}
	if len(re.Context) == 0 {
		t.Error("no context bytes")
	}
}

func TestDecode_Lenient(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.mgx", append(sample(t), unsupported()...))
	unresolved := writeFile(t, dir, "mid.mgx", encode(t, nil,
		mustFrame(t, &protocol.Stop{Objects: protocol.ReusePrevious()}, 0)))

	if _, err := run(t, dir, "", "decode", "--skip-unsupported", bad); err != nil {
		t.Errorf("--skip-unsupported: %v", err)
	}
	if _, err := run(t, dir, "", "decode", "--allow-unresolved", unresolved); err != nil {
		t.Errorf("--allow-unresolved: %v", err)
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "game.mgx", append(sample(t), unsupported()...))

	out, err := run(t, dir, "", "stats", "--json", "--skip-unsupported", path)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var s replay.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Commands["Move"] != 1 || s.Reused != 1 || s.Skipped != 1 || s.GameTimeMillis != 1500 {
		t.Errorf("summary = %+v", s)
	}

	out, err = run(t, dir, "", "stats", "--skip-unsupported", path)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Commands:", "Move", "Game time:              1.5s", "Skipped frames:         1"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "game.mgx", sample(t))

	out, err := run(t, dir, "", "verify", path)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "4 actions") {
		t.Errorf("output = %q", out)
	}
}

func TestVerify_SkipsUnsupported(t *testing.T) {
	dir := t.TempDir()
	data := encode(t, nil, &protocol.Time{Elapsed: 1})
	data = append(data, unsupported()...)
	data = append(data, encode(t, nil, mustFrame(t, &protocol.Stop{Objects: protocol.Objects(1)}, 5))...)
	path := writeFile(t, dir, "game.mgx", data)

	out, err := run(t, dir, "", "verify", "--skip-unsupported", path)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "2 actions") || !strings.Contains(out, "1 unsupported frames were skipped") {
		t.Errorf("output = %q", out)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	// A chat message without its NUL terminator decodes, but re-encodes
	// with one.
	e := protocol.NewEncoder()
	e.WriteUint32(uint32(protocol.ActionChat))
	e.WriteInt32(-1)
	e.WriteUint32(2)
	e.WriteBytes([]byte("hi"))
	data := append(encode(t, nil, &protocol.Time{Elapsed: 1}), e.Bytes()...)

	dir := t.TempDir()
	path := writeFile(t, dir, "game.mgx", data)
	_, err := run(t, dir, "", "verify", path)

	var re *errors.RecError
	if !stderrors.As(err, &re) || re.Code != "R020" {
		t.Fatalf("error = %v, want R020", err)
	}
	if re.Location == nil || re.Location.Offset != 16 || re.Location.File != path {
		t.Errorf("Location = %+v, want offset 16 in %s", re.Location, path)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "project")

	if _, err := run(t, dir, "", "config", "init", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	cfg, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "disk" {
		t.Errorf("Backend = %q, want disk", cfg.Storage.Backend)
	}

	_, err = run(t, dir, "", "config", "init", target)
	if got := recErrorCode(err); got != "C123" {
		t.Errorf("second init code = %q, want C123", got)
	}
	if _, err := run(t, dir, "", "config", "init", "--force", target); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, `"backend": "disk"`) {
		t.Errorf("output = %s", out)
	}
}

func TestStateWidth(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"state-width", "11.76"}, "1"},
		{[]string{"state-width", "11.77"}, "4"},
		{[]string{"state-width", "--cutoff", "12", "11.9"}, "1"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, t.TempDir(), "", tt.args...)
			if err != nil {
				t.Fatalf("state-width: %v", err)
			}
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("output = %q, want %s", out, tt.want)
			}
		})
	}

	_, err := run(t, t.TempDir(), "", "state-width", "abc")
	if got := recErrorCode(err); got != "E140" {
		t.Errorf("code = %q, want E140", got)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "version", "--short")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("output = %q, want %q", out, version)
	}
}
