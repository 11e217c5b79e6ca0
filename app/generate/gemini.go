package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
)

const (
	defaultGeminiURL   = "https://generativelanguage.googleapis.com"
	defaultGeminiModel = "gemini-2.5-flash-image"
	maxResponseSize    = 64 * 1024 * 1024 // base64 encoded images can be large
)

// GeminiParams configures Gemini client
type GeminiParams struct {
	BaseURL string        // api base url, default is the public endpoint
	Model   string        // image model name
	APIKey  string        // x-goog-api-key value
	Timeout time.Duration // per request timeout, 0 for no timeout
}

// Gemini is a Generator calling Gemini image model over its REST api
type Gemini struct {
	GeminiParams
	client *http.Client
}

// NewGemini makes Gemini client with defaults applied
func NewGemini(params GeminiParams) *Gemini {
	if params.BaseURL == "" {
		params.BaseURL = defaultGeminiURL
	}
	if params.Model == "" {
		params.Model = defaultGeminiModel
	}
	params.BaseURL = strings.TrimSuffix(params.BaseURL, "/")
	return &Gemini{GeminiParams: params, client: &http.Client{Timeout: params.Timeout}}
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
		ImageConfig        *struct {
			AspectRatio string `json:"aspectRatio"`
		} `json:"imageConfig,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends the label and wrapped scene description to the model and returns the first image part
func (g *Gemini) Generate(ctx context.Context, req Request) (Image, error) {
	if len(req.Label) == 0 {
		return Image{}, ErrNoLabel
	}
	if err := CheckAspectRatio(req.AspectRatio); err != nil {
		return Image{}, err
	}

	body, err := json.Marshal(g.makeRequest(req))
	if err != nil {
		return Image{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.BaseURL, g.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.APIKey)

	st := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Image{}, fmt.Errorf("failed to call %s: %w", g.Model, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close response body: %v", closeErr)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read response: %w", err)
	}

	var gr geminiResponse
	if resp.StatusCode != http.StatusOK {
		if jerr := json.Unmarshal(respBody, &gr); jerr == nil && gr.Error != nil {
			return Image{}, fmt.Errorf("model %s returned %d: %s %s", g.Model, resp.StatusCode, gr.Error.Status, gr.Error.Message)
		}
		return Image{}, fmt.Errorf("model %s returned unexpected status code: %d", g.Model, resp.StatusCode)
	}
	if err = json.Unmarshal(respBody, &gr); err != nil {
		return Image{}, fmt.Errorf("failed to parse response: %w", err)
	}

	img, err := g.extractImage(gr)
	if err != nil {
		return Image{}, err
	}
	log.Printf("[DEBUG] %s rendered %s, %d bytes in %v", g.Model, img.MimeType, len(img.Data), time.Since(st).Truncate(time.Millisecond))
	return img, nil
}

func (g *Gemini) makeRequest(req Request) geminiRequest {
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	gr := geminiRequest{Contents: []geminiContent{{
		Role: "user",
		Parts: []geminiPart{
			{InlineData: &geminiBlob{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(req.Label)}},
			{Text: instructions(req.Prompt)},
		},
	}}}
	gr.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
	if req.AspectRatio != "" {
		gr.GenerationConfig.ImageConfig = &struct {
			AspectRatio string `json:"aspectRatio"`
		}{AspectRatio: req.AspectRatio}
	}
	return gr
}

// extractImage scans candidate parts for the first inline image
func (g *Gemini) extractImage(gr geminiResponse) (Image, error) {
	if gr.PromptFeedback.BlockReason != "" {
		return Image{}, fmt.Errorf("%w: prompt blocked, %s", ErrNoImage, gr.PromptFeedback.BlockReason)
	}
	for _, c := range gr.Candidates {
		for _, p := range c.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return Image{}, fmt.Errorf("failed to decode image data: %w", err)
			}
			mimeType := p.InlineData.MimeType
			if mimeType == "" {
				mimeType = http.DetectContentType(data)
			}
			return Image{Data: data, MimeType: mimeType}, nil
		}
		if c.FinishReason != "" && c.FinishReason != "STOP" {
			return Image{}, fmt.Errorf("%w: finish reason %s", ErrNoImage, c.FinishReason)
		}
	}
	return Image{}, ErrNoImage
}

// String describes the client for logs
func (g *Gemini) String() string {
	return fmt.Sprintf("gemini %s at %s", g.Model, g.BaseURL)
}

var _ Generator = (*Gemini)(nil)
