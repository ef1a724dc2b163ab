package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/relaybridge/wayfarer/internal/fallback"
)

// visionIncapableModels lists model name substrings known to reject image
// content. Checked against ChatRequest.Model before dispatch.
var visionIncapableModels = []string{
	"o1-mini",
	"deepseek",
	"qwen-turbo",
}

// toolResultNoImageProviders lists provider Name()s that reject images
// attached to role="tool" messages; the wrapper downgrades those messages
// to text-only and re-injects the images as a synthetic user message.
var toolResultNoImageProviders = map[string]bool{
	"openai": true,
}

var metadataKeyPattern = regexp.MustCompile(`"_(image_path|mime_type)"\s*:\s*"[^"]*"\s*,?\s*`)

// FallbackNotice describes a fallback mode transition the call wrapper
// wants surfaced to the user.
type FallbackNotice struct {
	SessionKey string
	Kind       string // "entered" or "restored"
}

// NotifyFunc emits a FallbackNotice; wired by the caller that constructs
// the CallWrapper (the gateway publishes it as an outbound bus message).
type NotifyFunc func(FallbackNotice)

// CallWrapper is the single entry point every LLM call site (agent loop,
// sub-agent manager, compactor) goes through. It consults a
// fallback.Controller to pick primary or secondary, and applies
// provider-specific request adaptations before dispatch.
type CallWrapper struct {
	Primary   Provider
	Secondary Provider // nil if no secondary is configured

	Fallback      *fallback.Controller
	Threshold     int
	ProbeInterval time.Duration
	Notify        NotifyFunc
}

// NewCallWrapper builds a CallWrapper. secondary may be nil, in which case
// primary failures never fall through and the synthetic error response is
// returned directly.
func NewCallWrapper(primary, secondary Provider, fb *fallback.Controller, threshold int, probeInterval time.Duration, notify NotifyFunc) *CallWrapper {
	if threshold <= 0 {
		threshold = 3
	}
	if probeInterval <= 0 {
		probeInterval = 5 * time.Minute
	}
	return &CallWrapper{
		Primary: primary, Secondary: secondary,
		Fallback: fb, Threshold: threshold, ProbeInterval: probeInterval,
		Notify: notify,
	}
}

// Call runs req against primary or secondary per the current fallback
// state, applying provider adaptations first. batch, if non-nil, is marked
// whenever the secondary served the call, so the caller can record
// fallback usage once per logical batch instead of once per call.
func (w *CallWrapper) Call(ctx context.Context, sessionKey string, req ChatRequest, stream bool, onChunk func(StreamChunk), batch *fallback.BatchUsage) (resp *ChatResponse, usedFallback bool, err error) {
	_, tryPrimary := w.Fallback.Snapshot(w.ProbeInterval)

	if tryPrimary {
		w.Fallback.MarkPrimaryProbed()
		resp, err = w.dispatch(ctx, w.Primary, req, stream, onChunk)
		if err == nil {
			wasInFallback := w.Fallback.RecordPrimarySuccess()
			if wasInFallback && w.Notify != nil {
				w.Notify(FallbackNotice{SessionKey: sessionKey, Kind: "restored"})
			}
			return resp, false, nil
		}
		crossed := w.Fallback.RecordPrimaryFailure(w.Threshold)
		if crossed && w.Notify != nil {
			w.Notify(FallbackNotice{SessionKey: sessionKey, Kind: "entered"})
		}
	}

	if w.Secondary == nil {
		if err == nil {
			err = fmt.Errorf("fallback: no secondary provider configured")
		}
		return errorResponse(err), false, nil
	}

	resp, secErr := w.dispatch(ctx, w.Secondary, req, stream, onChunk)
	if secErr != nil {
		combined := fmt.Errorf("primary and secondary both failed: primary=%v secondary=%v", err, secErr)
		return errorResponse(combined), false, nil
	}
	if batch != nil {
		batch.Mark()
	}
	return resp, true, nil
}

func (w *CallWrapper) dispatch(ctx context.Context, p Provider, req ChatRequest, stream bool, onChunk func(StreamChunk)) (*ChatResponse, error) {
	adapted := adaptRequest(req, p)
	resp, err := w.call(ctx, p, adapted, stream, onChunk)
	if err != nil && p.Name() == "gemini" && isGeminiCacheRateLimit(err) {
		stripped := stripCacheMarkers(adapted)
		return w.call(ctx, p, stripped, stream, onChunk)
	}
	return resp, err
}

func (w *CallWrapper) call(ctx context.Context, p Provider, req ChatRequest, stream bool, onChunk func(StreamChunk)) (*ChatResponse, error) {
	if stream {
		return p.ChatStream(ctx, req, onChunk)
	}
	return p.Chat(ctx, req)
}

func errorResponse(err error) *ChatResponse {
	return &ChatResponse{FinishReason: "error", Content: err.Error()}
}

// adaptRequest applies the provider-specific request transforms documented
// for the call wrapper: vision stripping for models without image support,
// tool-result image downgrade for providers that reject it, and internal
// metadata-key stripping.
func adaptRequest(req ChatRequest, p Provider) ChatRequest {
	req = stripVisionIfUnsupported(req, p)
	if toolResultNoImageProviders[p.Name()] {
		req = downgradeToolResultImages(req)
	}
	req.Messages = stripInternalMetadata(req.Messages)
	req.Messages = injectCacheMarkers(req.Messages)
	return req
}

func stripVisionIfUnsupported(req ChatRequest, p Provider) ChatRequest {
	supported := true
	for _, m := range visionIncapableModels {
		if strings.Contains(strings.ToLower(req.Model), m) {
			supported = false
			break
		}
	}
	if supported {
		return req
	}
	out := make([]Message, len(req.Messages))
	for i, msg := range req.Messages {
		if len(msg.Images) == 0 {
			out[i] = msg
			continue
		}
		m := msg
		m.Images = nil
		if m.Content == "" {
			m.Content = "[image omitted: model does not support vision]"
		} else {
			m.Content += "\n[image omitted: model does not support vision]"
		}
		out[i] = m
	}
	req.Messages = out
	return req
}

// downgradeToolResultImages moves images off role="tool" messages and
// re-injects them as a synthetic user message immediately after, so
// providers that reject images in tool role still let the model see them.
func downgradeToolResultImages(req ChatRequest) ChatRequest {
	var out []Message
	for _, msg := range req.Messages {
		if msg.Role != "tool" || len(msg.Images) == 0 {
			out = append(out, msg)
			continue
		}
		stripped := msg
		images := msg.Images
		stripped.Images = nil
		out = append(out, stripped)
		out = append(out, Message{
			Role:    "user",
			Content: "(images from the preceding tool result)",
			Images:  images,
		})
	}
	req.Messages = out
	return req
}

func stripInternalMetadata(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, msg := range messages {
		if strings.Contains(msg.Content, "_image_path") || strings.Contains(msg.Content, "_mime_type") {
			msg.Content = metadataKeyPattern.ReplaceAllString(msg.Content, "")
		}
		out[i] = msg
	}
	return out
}

const cacheMarker = "\x00cache-boundary\x00"

// injectCacheMarkers marks the system-prompt boundary and the last
// tool-result message (falling back to the 2nd-to-last user message) as
// prompt-cache boundaries. The marker is sent to every provider as part
// of the message content; no provider maps it to a cache_control block.
// It is removed only by stripCacheMarkers on the Gemini cache-rate-limit
// retry.
func injectCacheMarkers(messages []Message) []Message {
	if len(messages) == 0 {
		return messages
	}
	out := make([]Message, len(messages))
	copy(out, messages)

	boundary := -1
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == "tool" {
			boundary = i
			break
		}
	}
	if boundary == -1 {
		userSeen := 0
		for i := len(out) - 1; i >= 0; i-- {
			if out[i].Role == "user" {
				userSeen++
				if userSeen == 2 {
					boundary = i
					break
				}
			}
		}
	}
	if boundary >= 0 {
		out[boundary].Content += cacheMarker
	}
	if out[0].Role == "system" {
		out[0].Content += cacheMarker
	}
	return out
}

func stripCacheMarkers(req ChatRequest) ChatRequest {
	out := make([]Message, len(req.Messages))
	for i, msg := range req.Messages {
		msg.Content = strings.ReplaceAll(msg.Content, cacheMarker, "")
		out[i] = msg
	}
	req.Messages = out
	return req
}

func isGeminiCacheRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "cache") && (strings.Contains(msg, "rate") || strings.Contains(msg, "quota") || strings.Contains(msg, "429"))
}

// truncatedArgPattern extracts top-level `"field": "value` pairs from a
// tool-call argument string cut off mid-stream, preserving the truncated
// tail under its original key instead of discarding it.
var truncatedArgPattern = regexp.MustCompile(`"([A-Za-z0-9_]+)"\s*:\s*"((?:[^"\\]|\\.)*)`)

// RecoverTruncatedJSON best-effort parses a truncated tool-call argument
// string (finish_reason == "length" cut the model off mid-arguments) into a
// map, used by the agent loop when json.Unmarshal on the raw arguments
// fails outright.
func RecoverTruncatedJSON(raw string) map[string]interface{} {
	out := make(map[string]interface{})
	for _, m := range truncatedArgPattern.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		val = strings.ReplaceAll(val, `\"`, `"`)
		out[key] = val
	}
	return out
}
