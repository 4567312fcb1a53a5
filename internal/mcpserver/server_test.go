package mcpserver

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fpang/proshot/internal/dataurl"
	"github.com/fpang/proshot/internal/imagegen"
	"github.com/fpang/proshot/internal/metrics"
	"github.com/fpang/proshot/internal/session"
	"github.com/fpang/proshot/internal/styles"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var headshot = []byte("\x89PNG\r\n\x1a\nheadshot")

type stubGen struct {
	instruction string
	err         error
}

func (g *stubGen) Generate(ctx context.Context, source dataurl.Image, instruction string) (dataurl.Image, error) {
	g.instruction = instruction
	if g.err != nil {
		return "", g.err
	}
	return dataurl.Encode(dataurl.MediaTypePNG, headshot), nil
}

func connect(t *testing.T, gen imagegen.Generator) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := New(gen, Options{
		Version:  "test",
		Sessions: session.Options{UploadDelay: time.Millisecond},
		Timeout:  2 * time.Second,
	})
	clientT, serverT := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() {
		cs.Close()
		ss.Wait()
	})
	return cs
}

func writeSelfie(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestListTools(t *testing.T) {
	cs := connect(t, &stubGen{})
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_styles", "generate_headshot"} {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
}

func TestListStyles(t *testing.T) {
	cs := connect(t, &stubGen{})
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "list_styles", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	text := textOf(t, res)
	for _, s := range styles.List() {
		if !strings.Contains(text, s.ID+": "+s.Name) {
			t.Errorf("listing missing %s:\n%s", s.ID, text)
		}
	}
}

func TestGenerateHeadshot(t *testing.T) {
	gen := &stubGen{}
	cs := connect(t, gen)
	path := writeSelfie(t, "me.jpg", []byte("\xff\xd8\xff\xe0selfie"))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "generate_headshot",
		Arguments: map[string]any{"imagePath": path, "styleId": "studio-bw"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textOf(t, res))
	}

	var img *mcp.ImageContent
	for _, c := range res.Content {
		if ic, ok := c.(*mcp.ImageContent); ok {
			img = ic
		}
	}
	if img == nil {
		t.Fatal("no image content in result")
	}
	if img.MIMEType != "image/png" || !bytes.Equal(img.Data, headshot) {
		t.Errorf("image = %s %q", img.MIMEType, img.Data)
	}

	bw, _ := styles.Lookup("studio-bw")
	if gen.instruction != bw.Instruction {
		t.Errorf("instruction = %q, want preset prompt", gen.instruction)
	}
}

func TestGenerateHeadshotErrors(t *testing.T) {
	selfie := writeSelfie(t, "me.png", []byte("\x89PNG\r\n\x1a\nselfie"))
	notImage := writeSelfie(t, "notes.txt", []byte("hello"))

	tests := []struct {
		name    string
		args    map[string]any
		genErr  error
		wantMsg string
	}{
		{
			name:    "unknown style",
			args:    map[string]any{"imagePath": selfie, "styleId": "vaporwave"},
			wantMsg: "Unknown style",
		},
		{
			name:    "missing file",
			args:    map[string]any{"imagePath": filepath.Join(t.TempDir(), "nope.jpg"), "styleId": "tech"},
			wantMsg: "Cannot open",
		},
		{
			name:    "not an image",
			args:    map[string]any{"imagePath": notImage, "styleId": "tech"},
			wantMsg: "image",
		},
		{
			name:    "empty custom prompt",
			args:    map[string]any{"imagePath": selfie, "styleId": styles.CustomID, "prompt": "  "},
			wantMsg: session.MsgEmptyCustomInstruction,
		},
		{
			name:    "quota",
			args:    map[string]any{"imagePath": selfie, "styleId": "tech"},
			genErr:  &imagegen.TransportError{Kind: imagegen.KindQuota, Err: io.EOF},
			wantMsg: "busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := connect(t, &stubGen{err: tt.genErr})
			res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "generate_headshot", Arguments: tt.args})
			if err != nil {
				t.Fatalf("CallTool: %v", err)
			}
			if !res.IsError {
				t.Fatal("expected a tool error result")
			}
			if got := textOf(t, res); !strings.Contains(got, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", got, tt.wantMsg)
			}
		})
	}
}
