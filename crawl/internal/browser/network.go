// CLAUDE:SUMMARY CDP network listener: pairs responseReceived with loadingFinished and fetches bodies of wanted URLs.
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// Delivery receives one finished response body.
type Delivery func(url string, status int, body []byte)

type pending struct {
	url    string
	status int
}

// Listen enables the Network domain on the tab and calls deliver for every
// finished response whose URL passes wants. Bodies are fetched on their own
// goroutine so the event loop never blocks. Listening stops when ctx is
// done or the tab is closed.
func (t *Tab) Listen(ctx context.Context, wants func(url string) bool, deliver Delivery) error {
	page := t.Page
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fmt.Errorf("browser: enable network: %w", err)
	}

	var mu sync.Mutex
	inflight := make(map[proto.NetworkRequestID]pending)

	lctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	wait := page.Context(lctx).EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if e.Response == nil || !wants(e.Response.URL) {
				return
			}
			mu.Lock()
			inflight[e.RequestID] = pending{url: e.Response.URL, status: e.Response.Status}
			mu.Unlock()
		},
		func(e *proto.NetworkLoadingFinished) {
			mu.Lock()
			p, ok := inflight[e.RequestID]
			delete(inflight, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}
			go func() {
				body, err := responseBody(page, e.RequestID)
				if err != nil {
					return
				}
				deliver(p.url, p.status, body)
			}()
		},
		func(e *proto.NetworkLoadingFailed) {
			mu.Lock()
			delete(inflight, e.RequestID)
			mu.Unlock()
		},
	)
	go wait()
	return nil
}

func responseBody(c proto.Client, id proto.NetworkRequestID) ([]byte, error) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(c)
	if err != nil {
		return nil, err
	}
	if res.Base64Encoded {
		return base64.StdEncoding.DecodeString(res.Body)
	}
	return []byte(res.Body), nil
}
