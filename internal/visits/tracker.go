package visits

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dghubble/sling"

	"github.com/agenda-lojas/agenda/internal/logger"
)

const trackerTimeout = 5 * time.Second

// Tracker pings the registrar endpoint of a deployed agenda
type Tracker struct {
	sling *sling.Sling
	log   *logger.Logger
	wg    sync.WaitGroup
}

// NewTracker creates a Tracker for baseURL. It returns nil when baseURL is empty; a nil
// Tracker ignores every call.
func NewTracker(baseURL string, log *logger.Logger) *Tracker {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if log == nil {
		log = logger.Default()
	}
	client := &http.Client{Timeout: trackerTimeout}
	return &Tracker{
		sling: sling.New().Client(client).Base(baseURL + "/"),
		log:   log.With(logger.Fields{"component": "tracker"}),
	}
}

type registrarParams struct {
	Pagina string `url:"pagina"`
}

// Send registers one view of page and waits for the answer
func (t *Tracker) Send(ctx context.Context, page string) error {
	if t == nil {
		return nil
	}
	if page == "" {
		page = DefaultPage
	}

	req, err := t.sling.New().Get("api/registrar").QueryStruct(registrarParams{Pagina: page}).Request()
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := t.sling.Do(req.WithContext(ctx), nil, nil)
	if err != nil {
		return fmt.Errorf("registering view: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("registering view: unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// Fire registers one view of page in the background. Failures are logged and dropped.
func (t *Tracker) Fire(page string) {
	if t == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), trackerTimeout)
		defer cancel()
		if err := t.Send(ctx, page); err != nil {
			t.log.Debug("Page view not registered", logger.Fields{"page": page, "error": err.Error()})
		}
	}()
}

// Flush waits up to timeout for background pings to finish
func (t *Tracker) Flush(timeout time.Duration) {
	if t == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
