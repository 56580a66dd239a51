package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/fakhrymubarak/dioramacast/internal/config"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func TestNew_NoKey(t *testing.T) {
	p, err := New(context.Background(), config.ImageConfig{Provider: ProviderGemini}, http.DefaultClient)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrCredentialMissing)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.ImageConfig{Provider: "midjourney", APIKey: "k"}, http.DefaultClient)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNew_SelectsProvider(t *testing.T) {
	for _, name := range []string{ProviderGemini, ProviderImagen, ProviderOpenAI} {
		p, err := New(context.Background(), config.ImageConfig{Provider: name, APIKey: "k"}, http.DefaultClient)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestFirstInlineImage(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    *Image
		wantErr error
	}{
		{name: "Nil response", resp: nil, wantErr: ErrNoImage},
		{name: "No candidates", resp: &genai.GenerateContentResponse{}, wantErr: ErrNoImage},
		{
			name:    "Candidate without content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: ErrNoImage,
		},
		{
			name: "Text only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "I can't draw that"}}},
			}}},
			wantErr: ErrNoImage,
		},
		{
			name: "Text then image",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "Here you go"},
					{InlineData: &genai.Blob{Data: pngBytes, MIMEType: "image/jpeg"}},
				}},
			}}},
			want: &Image{Data: pngBytes, MIMEType: "image/jpeg"},
		},
		{
			name: "Missing mime type",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: pngBytes}}}},
			}}},
			want: &Image{Data: pngBytes, MIMEType: "image/png"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := firstInlineImage(tt.resp)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, img)
		})
	}
}

func TestGemini_GenerateAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role": "model",
					"parts": []any{map[string]any{
						"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(pngBytes),
						},
					}},
				},
			}},
		})
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), config.ImageConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	img, err := g.Generate(context.Background(), "a tiny city")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
}

func TestGemini_ProviderErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key invalid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), config.ImageConfig{APIKey: "bad", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "a tiny city")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoImage)
}

func openAIServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestOpenAI_B64Image(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, map[string]any{
		"created": 1,
		"data":    []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString(pngBytes)}},
	})
	defer srv.Close()

	p := NewOpenAI(config.ImageConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, srv.Client())
	img, err := p.Generate(context.Background(), "a tiny city")
	require.NoError(t, err)
	assert.Equal(t, &Image{Data: pngBytes, MIMEType: "image/png"}, img)
}

func TestOpenAI_HostedURL(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, map[string]any{
		"created": 1,
		"data":    []any{map[string]any{"url": "https://cdn.example/img.png"}},
	})
	defer srv.Close()

	p := NewOpenAI(config.ImageConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, srv.Client())
	img, err := p.Generate(context.Background(), "a tiny city")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.png", img.URL)
}

func TestOpenAI_NoData(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, map[string]any{"created": 1, "data": []any{}})
	defer srv.Close()

	p := NewOpenAI(config.ImageConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, srv.Client())
	_, err := p.Generate(context.Background(), "a tiny city")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestOpenAI_APIError(t *testing.T) {
	srv := openAIServer(t, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"message": "content policy violation", "type": "invalid_request_error"},
	})
	defer srv.Close()

	p := NewOpenAI(config.ImageConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, srv.Client())
	_, err := p.Generate(context.Background(), "a tiny city")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoImage)
}
