package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Google Translate refuses longer q values.
const googleMaxChunk = 200

// GoogleClient speaks through the public Google Translate TTS endpoint. The
// voice argument is the Google TLD, which selects the accent ("com", "co.uk").
type GoogleClient struct {
	lang    string
	baseURL string // overrides https://translate.google.<tld>
	client  *http.Client
}

func NewGoogleClient(lang, baseURL string) *GoogleClient {
	if lang == "" {
		lang = "en"
	}
	return &GoogleClient{
		lang:    lang,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (c *GoogleClient) host(tld string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	if tld == "" {
		tld = "com"
	}
	return "https://translate.google." + tld
}

// TEXT → SPEECH: each chunk comes back as a complete MP3 stream, the streams are
// appended to one file.
func (c *GoogleClient) Synthesize(ctx context.Context, text, tld, outPath string) error {
	chunks := splitChunks(text, googleMaxChunk)
	if len(chunks) == 0 {
		return fmt.Errorf("gtts: empty text")
	}

	return writeAudio(outPath, func(w io.Writer) error {
		for i, chunk := range chunks {
			if err := c.fetchChunk(ctx, tld, chunk, i, len(chunks), w); err != nil {
				return fmt.Errorf("gtts chunk %d/%d: %w", i+1, len(chunks), err)
			}
		}
		return nil
	})
}

func (c *GoogleClient) fetchChunk(ctx context.Context, tld, chunk string, idx, total int, w io.Writer) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", c.lang)
	q.Set("q", chunk)
	q.Set("ttsspeed", "1")
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host(tld)+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "http://translate.google.com/")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("empty audio")
	}
	return nil
}

// splitChunks cuts text at spaces into pieces of at most limit runes. A single
// word longer than limit is cut hard.
func splitChunks(text string, limit int) []string {
	var chunks []string
	var cur []rune

	flush := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			chunks = append(chunks, s)
		}
		cur = cur[:0]
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}
		if len(cur) > 0 && len(cur)+1+len(w) > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	flush()
	return chunks
}
