package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	subjects []string
	err      error
}

func (r *recordingSink) Send(_ context.Context, subject, _ string) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestMultiTriesEverySink(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingSink{err: boom}
	b := &recordingSink{}
	c := &recordingSink{err: boom}

	err := Multi{a, b, c, LogSink{}}.Send(context.Background(), "subj", "body")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sink 0")
	assert.Contains(t, err.Error(), "sink 2")
	for _, s := range []*recordingSink{a, b, c} {
		assert.Equal(t, []string{"subj"}, s.subjects)
	}

	assert.NoError(t, Multi{b}.Send(context.Background(), "again", ""))
	assert.NoError(t, Multi(nil).Send(context.Background(), "empty", ""))
}

func TestSMTPSinkMessage(t *testing.T) {
	s, err := NewSMTPSink(SMTPConfig{Host: "smtp.example.com:587", From: "watch@example.com", Password: "secret"})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

	var (
		gotMsg  string
		gotAuth smtp.Auth
	)
	s.send = func(_ context.Context, a smtp.Auth, msg []byte) error {
		gotMsg, gotAuth = string(msg), a
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "procwatch report", "<pre>hi</pre>"))
	assert.Equal(t, []string{"watch@example.com"}, s.cfg.To)
	assert.Equal(t, DefaultSMTPTimeout, s.cfg.Timeout)
	assert.NotNil(t, gotAuth)
	assert.Contains(t, gotMsg, "To: watch@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: procwatch report\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<pre>hi</pre>"))
}

func TestSMTPSinkErrors(t *testing.T) {
	_, err := NewSMTPSink(SMTPConfig{From: "a@b"})
	assert.Error(t, err)
	_, err = NewSMTPSink(SMTPConfig{Host: "h:25"})
	assert.Error(t, err)

	s, err := NewSMTPSink(SMTPConfig{Host: "h:25", From: "a@b", To: []string{"c@d"}})
	require.NoError(t, err)
	s.send = func(context.Context, smtp.Auth, []byte) error { return errors.New("refused") }
	err = s.Send(context.Background(), "s", "b")
	assert.ErrorContains(t, err, "refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "s", "b"), context.Canceled)
}

// serveSMTP answers one session with the minimum of ESMTP and hands back
// the envelope commands plus the message.
func serveSMTP(ln net.Listener, got chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 localhost ESMTP")

	var seen strings.Builder
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb, _, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "EHLO", "HELO":
			tp.PrintfLine("250 localhost")
		case "MAIL", "RCPT":
			seen.WriteString(line + "\n")
			tp.PrintfLine("250 OK")
		case "DATA":
			tp.PrintfLine("354 go ahead")
			body, _ := tp.ReadDotBytes()
			seen.Write(body)
			tp.PrintfLine("250 queued")
		case "QUIT":
			tp.PrintfLine("221 bye")
			got <- seen.String()
			return
		default:
			tp.PrintfLine("502 not implemented")
		}
	}
}

func TestSMTPSinkDelivers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	got := make(chan string, 1)
	go serveSMTP(ln, got)

	s, err := NewSMTPSink(SMTPConfig{Host: ln.Addr().String(), From: "watch@example.com", To: []string{"ops@example.com", "dev@example.com"}})
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), "procwatch report", "<pre>hi</pre>"))

	select {
	case session := <-got:
		assert.Contains(t, session, "MAIL FROM:<watch@example.com>")
		assert.Contains(t, session, "RCPT TO:<ops@example.com>")
		assert.Contains(t, session, "RCPT TO:<dev@example.com>")
		assert.Contains(t, session, "Subject: procwatch report")
		assert.Contains(t, session, "<pre>hi</pre>")
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw QUIT")
	}
}

// stalledSMTP accepts connections and never answers.
func stalledSMTP(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	return ln.Addr().String()
}

func TestSMTPSinkStalledServerTimesOut(t *testing.T) {
	s, err := NewSMTPSink(SMTPConfig{Host: stalledSMTP(t), From: "a@example.com", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = s.Send(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPSinkCancelAbortsStalledServer(t *testing.T) {
	s, err := NewSMTPSink(SMTPConfig{Host: stalledSMTP(t), From: "a@example.com", Timeout: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	err = s.Send(ctx, "s", "b")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWebhookSinkPostsJSON(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSink(WebhookConfig{URL: srv.URL, MaxRetries: 1}, nil)
	require.NoError(t, s.Send(context.Background(), "subj", "<b>body</b>"))
	assert.Equal(t, "subj", got.Subject)
	assert.Equal(t, "<b>body</b>", got.Body)
	assert.False(t, got.SentAt.IsZero())
}

func TestWebhookSinkRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSink(WebhookConfig{URL: srv.URL, MaxRetries: 3}, nil)
	s.client.RetryWaitMin = time.Millisecond
	s.client.RetryWaitMax = time.Millisecond
	require.NoError(t, s.Send(context.Background(), "subj", "body"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookSinkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewWebhookSink(WebhookConfig{URL: srv.URL}, nil)
	err := s.Send(context.Background(), "subj", "body")
	assert.ErrorContains(t, err, "400")
}
