package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type fakeRunner struct {
	name  string
	args  []string
	out   []byte
	err   error
	onRun func(args []string)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	if f.onRun != nil {
		f.onRun(args)
	}
	return f.out, f.err
}

func argValue(args []string, flag string) (string, bool) {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return "", false
	}
	return args[i+1], true
}

func TestClient_ExtractPlaylistArgs(t *testing.T) {
	tests := []struct {
		name        string
		cookies     string
		wantCookies bool
	}{
		{"with credential", "/etc/cookies.txt", true},
		{"without credential", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{out: []byte(`{}`)}
			c := New(r, Options{Binary: "/opt/yt-dlp"})

			if _, err := c.ExtractPlaylist(context.Background(), "https://example.com/list", tt.cookies); err != nil {
				t.Fatal(err)
			}
			if r.name != "/opt/yt-dlp" {
				t.Errorf("binary = %q", r.name)
			}
			if !slices.Contains(r.args, "--flat-playlist") || !slices.Contains(r.args, "-J") {
				t.Errorf("args = %v", r.args)
			}
			got, ok := argValue(r.args, "--cookies")
			if ok != tt.wantCookies || (ok && got != tt.cookies) {
				t.Errorf("--cookies = %q (present %v)", got, ok)
			}
			if r.args[len(r.args)-1] != "https://example.com/list" {
				t.Errorf("url must be last, args = %v", r.args)
			}
		})
	}
}

func TestClient_ExtractItemArgs(t *testing.T) {
	r := &fakeRunner{out: []byte(`{}`)}
	if _, err := New(r, Options{}).ExtractItem(context.Background(), "u", ""); err != nil {
		t.Fatal(err)
	}
	if r.name != "yt-dlp" || !slices.Contains(r.args, "--no-playlist") {
		t.Errorf("name = %q args = %v", r.name, r.args)
	}
}

func TestClient_DownloadAudio(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "01 - Song") + ".%(ext)s"
	final := filepath.Join(dir, "01 - Song.mp3")

	r := &fakeRunner{
		out: []byte("[info] ignored\n" + final + "\n"),
		onRun: func([]string) {
			os.WriteFile(final, []byte("ID3"), 0644)
		},
	}
	c := New(r, DefaultOptions())

	got, err := c.DownloadAudio(context.Background(), "https://example.com/v", tmpl, "")
	if err != nil {
		t.Fatalf("DownloadAudio() error = %v", err)
	}
	if got != final {
		t.Errorf("path = %q, want %q", got, final)
	}

	if v, _ := argValue(r.args, "--audio-format"); v != "mp3" {
		t.Errorf("--audio-format = %q", v)
	}
	if v, _ := argValue(r.args, "--audio-quality"); v != "192K" {
		t.Errorf("--audio-quality = %q", v)
	}
	if v, _ := argValue(r.args, "-o"); v != tmpl {
		t.Errorf("-o = %q", v)
	}
}

func TestClient_DownloadAudioFindsUnprintedFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "02 - Other") + ".%(ext)s"

	r := &fakeRunner{
		onRun: func([]string) {
			os.WriteFile(filepath.Join(dir, "02 - Other.webm.part"), nil, 0644)
			os.WriteFile(filepath.Join(dir, "02 - Other.opus"), []byte("x"), 0644)
		},
	}
	got, err := New(r, Options{AudioFormat: "mp3"}).DownloadAudio(context.Background(), "l", tmpl, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, "02 - Other.opus") {
		t.Errorf("path = %q", got)
	}
}

func TestClient_DownloadAudioErrors(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "03 - Gone") + ".%(ext)s"

	t.Run("runner error", func(t *testing.T) {
		cmdErr := &CommandError{Name: "yt-dlp", Stderr: "ERROR: Private video", Original: errors.New("exit status 1")}
		_, err := New(&fakeRunner{err: cmdErr}, Options{}).DownloadAudio(context.Background(), "l", tmpl, "")
		var got *CommandError
		if !errors.As(err, &got) || !strings.Contains(got.Error(), "Private video") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("no output file", func(t *testing.T) {
		_, err := New(&fakeRunner{}, Options{}).DownloadAudio(context.Background(), "l", tmpl, "")
		if err == nil {
			t.Error("expected error when nothing was written")
		}
	})
}

func TestRedact(t *testing.T) {
	args := []string{"-J", "--cookies", "/home/me/cookies.txt", "url"}
	got := redact(args)
	if got[2] != "<redacted>" || args[2] != "/home/me/cookies.txt" {
		t.Errorf("redact() = %v, original = %v", got, args)
	}
}

func TestClient_Version(t *testing.T) {
	r := &fakeRunner{out: []byte("2025.10.22\n")}
	v, err := New(r, Options{}).Version(context.Background())
	if err != nil || v != "2025.10.22" {
		t.Errorf("Version() = %q, %v", v, err)
	}
}
