package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/speech"
)

// defaultVoices maps ISO-639-1 language codes to Piper voice model names.
var defaultVoices = map[string]string{
	"en": "en_US-lessac-medium",
	"fr": "fr_FR-siwis-medium",
	"es": "es_ES-mls_10246-low",
	"de": "de_DE-thorsten-medium",
	"it": "it_IT-riccardo-x_low",
	"pt": "pt_BR-faber-medium",
	"nl": "nl_NL-mls-medium",
}

// Wyoming talks to a Piper server over the Wyoming protocol. Each event is
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
type Wyoming struct {
	endpoint string
	voices   map[string]string
}

// NewWyoming creates a client for the server at endpoint (host:port).
// voices overrides the default language to voice table.
func NewWyoming(endpoint string, voices map[string]string) *Wyoming {
	merged := make(map[string]string, len(defaultVoices)+len(voices))
	for k, v := range defaultVoices {
		merged[k] = v
	}
	for k, v := range voices {
		merged[k] = v
	}

	endpoint = strings.TrimPrefix(endpoint, "tcp://")
	return &Wyoming{endpoint: endpoint, voices: merged}
}

// Name returns the engine name.
func (w *Wyoming) Name() string { return NameWyoming }

// Synthesize sends a synthesize event and collects the audio chunks.
func (w *Wyoming) Synthesize(ctx context.Context, text, locale string) (*speech.Audio, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	if w.endpoint == "" {
		return nil, fmt.Errorf("no wyoming endpoint configured: %w", speech.ErrUnavailable)
	}

	lang := baseLanguage(locale)
	voice := w.voices[lang]
	if voice == "" {
		voice = w.voices["en"]
	}

	log.Debug("wyoming synthesize", "text_length", len(text), "voice", voice, "endpoint", w.endpoint)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", w.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}
	// Unblock reads when the announcement is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	synth := wyomingEvent{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": voice},
		},
	}
	if err := writeEvent(conn, synth, nil); err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	audio := &speech.Audio{SampleRate: 22050, Channels: 1}
	var pcm bytes.Buffer

	for {
		evt, payload, err := readEvent(conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			if rate, ok := evt.Data["rate"].(float64); ok {
				audio.SampleRate = int(rate)
			}
			if ch, ok := evt.Data["channels"].(float64); ok {
				audio.Channels = int(ch)
			}
			if width, ok := evt.Data["width"].(float64); ok && int(width) != 2 {
				return nil, fmt.Errorf("unsupported sample width %d", int(width))
			}
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			audio.PCM = pcm.Bytes()
			return audio, nil
		case "error":
			msg := "unknown error"
			if text, ok := evt.Data["text"].(string); ok {
				msg = text
			}
			return nil, fmt.Errorf("piper error: %s", msg)
		default:
			log.Debug("wyoming unknown event", "type", evt.Type)
		}
	}
}

// Limits on a single event read from the server.
const (
	maxHeaderLen  = 64
	maxJSONLen    = 1 << 20
	maxPayloadLen = 64 << 20
)

type wyomingEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeEvent(w io.Writer, evt wyomingEvent, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(body), len(payload))
	buf.Write(body)
	buf.WriteByte('\n')
	buf.Write(payload)

	_, err = w.Write(buf.Bytes())
	return err
}

func readEvent(r io.Reader) (*wyomingEvent, []byte, error) {
	header := make([]byte, 0, 64)
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, one); err != nil {
			return nil, nil, fmt.Errorf("reading header: %w", err)
		}
		if one[0] == '\n' {
			break
		}
		header = append(header, one[0])
		if len(header) > maxHeaderLen {
			return nil, nil, fmt.Errorf("wyoming header longer than %d bytes", maxHeaderLen)
		}
	}

	parts := strings.Fields(string(header))
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", header)
	}
	jsonLen, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload_length: %w", err)
	}
	if jsonLen < 0 || jsonLen > maxJSONLen {
		return nil, nil, fmt.Errorf("invalid json_length %d", jsonLen)
	}
	if payloadLen < 0 || payloadLen > maxPayloadLen {
		return nil, nil, fmt.Errorf("invalid payload_length %d", payloadLen)
	}

	body := make([]byte, jsonLen+1) // trailing newline
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}

	var evt wyomingEvent
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}
