// Package mcpserver exposes the viseme engine and the Hangul converter as
// Model Context Protocol tools, served over streamable HTTP.
//
// Three tools are registered:
//   - "classify_ipa": classify every token of an IPA transcription.
//   - "resolve_frame": resolve the frame shown at a playback position.
//   - "text_to_ipa": convert Korean text to IPA and romanisation.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/mouthsync/pkg/hangul"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

const implementationName = "mouthsync"

// New builds an MCP server with all tools registered. A nil engine uses
// viseme.New().
func New(version string, engine *viseme.Engine) *mcp.Server {
	if engine == nil {
		engine = viseme.New()
	}
	s := mcp.NewServer(&mcp.Implementation{Name: implementationName, Version: version}, nil)
	t := &tools{engine: engine}

	mcp.AddTool(s, &mcp.Tool{
		Name:        "classify_ipa",
		Description: "Split an IPA transcription on whitespace and return the mouth-shape category, pose and image of every token.",
	}, t.classify)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "resolve_frame",
		Description: "Resolve the mouth frame shown at playback time t for an IPA transcription and its timed word spans.",
	}, t.resolveFrame)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "text_to_ipa",
		Description: "Convert Korean text to IPA and Revised Romanization, syllable by syllable.",
	}, t.textToIPA)
	return s
}

// Handler serves s over the streamable HTTP transport.
func Handler(s *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s }, nil)
}

type tools struct {
	engine *viseme.Engine
}

type classifyArgs struct {
	IPA string `json:"ipa" jsonschema:"IPA transcription, tokens separated by whitespace"`
}

type classifiedToken struct {
	Token    string             `json:"token"`
	Category viseme.Category    `json:"category"`
	Params   viseme.MouthParams `json:"params"`
	Image    string             `json:"image"`
}

type classifyResult struct {
	Tokens []classifiedToken `json:"tokens"`
}

func (t *tools) classify(_ context.Context, _ *mcp.CallToolRequest, args classifyArgs) (*mcp.CallToolResult, classifyResult, error) {
	tokens := viseme.Tokenize(args.IPA)
	out := classifyResult{Tokens: make([]classifiedToken, 0, len(tokens))}
	for _, tok := range tokens {
		c := viseme.ClassifyToken(tok)
		out.Tokens = append(out.Tokens, classifiedToken{
			Token:    tok,
			Category: c,
			Params:   viseme.Resolve(c),
			Image:    viseme.Image(c),
		})
	}
	return nil, out, nil
}

type frameArgs struct {
	IPA   string        `json:"ipa" jsonschema:"IPA transcription, one token per recognised word"`
	Words []viseme.Span `json:"words,omitempty" jsonschema:"timed word spans in seconds"`
	T     *float64      `json:"t,omitempty" jsonschema:"playback position in seconds; omit for an unknown position"`
}

func (t *tools) resolveFrame(_ context.Context, _ *mcp.CallToolRequest, args frameArgs) (*mcp.CallToolResult, viseme.Frame, error) {
	var clock viseme.Clock
	if args.T != nil {
		clock = viseme.At(*args.T)
	}
	return nil, t.engine.FrameAt(viseme.Tokenize(args.IPA), args.Words, clock), nil
}

type textArgs struct {
	Text string `json:"text" jsonschema:"Korean text"`
}

type textResult struct {
	Phonetic  string            `json:"phonetic"`
	IPA       string            `json:"ipa"`
	Romanized string            `json:"romanized"`
	Syllables []hangul.Syllable `json:"syllables"`
	Groups    []viseme.Category `json:"groups"`
}

func (t *tools) textToIPA(_ context.Context, _ *mcp.CallToolRequest, args textArgs) (*mcp.CallToolResult, textResult, error) {
	res := hangul.Convert(args.Text)
	out := textResult{
		Phonetic:  res.Phonetic,
		IPA:       res.IPA,
		Romanized: res.Romanized,
		Syllables: res.Syllables,
		Groups:    viseme.Groups(res.IPA),
	}
	if out.Syllables == nil {
		out.Syllables = []hangul.Syllable{}
	}
	return nil, out, nil
}
