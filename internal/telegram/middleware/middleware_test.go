package middleware

import (
	"context"
	"sync"
	"testing"

	"github.com/futig/knowledge-console/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func textUpdate(userID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: "hello",
	}}
}

func testContext() context.Context {
	return ctxzap.ToContext(context.Background(), zap.NewNop())
}

func TestRateLimiter_BurstThenWarn(t *testing.T) {
	sender := &fakeSender{}
	handled := 0
	h := Chain(func(context.Context, tgbotapi.Update) { handled++ }, NewRateLimiter(60, 3, sender).Middleware())

	for i := 0; i < 5; i++ {
		h(testContext(), textUpdate(1))
	}

	if handled != 3 {
		t.Errorf("expected burst of 3, handled %d", handled)
	}
	if len(sender.sent) != 1 || sender.sent[0] != render.MsgSlowDown {
		t.Errorf("expected a single warning, got %v", sender.sent)
	}

	// other users have their own bucket
	h(testContext(), textUpdate(2))
	if handled != 4 {
		t.Error("second user should not be limited")
	}
}

func TestRecovery_SendsApology(t *testing.T) {
	sender := &fakeSender{}
	h := Chain(func(context.Context, tgbotapi.Update) { panic("boom") }, Recovery(sender))

	h(testContext(), textUpdate(7))

	if len(sender.sent) != 1 || sender.sent[0] != render.ErrGeneric {
		t.Fatalf("expected apology message, got %v", sender.sent)
	}
}

func TestChain_Order(t *testing.T) {
	var trace []string
	mark := func(name string) Middleware {
		return func(next UpdateFunc) UpdateFunc {
			return func(ctx context.Context, u tgbotapi.Update) {
				trace = append(trace, name)
				next(ctx, u)
			}
		}
	}

	h := Chain(func(context.Context, tgbotapi.Update) { trace = append(trace, "handler") },
		mark("a"), mark("b"), Logging())
	h(testContext(), textUpdate(1))

	want := []string{"a", "b", "handler"}
	if len(trace) != len(want) {
		t.Fatalf("unexpected trace %v", trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("unexpected trace %v", trace)
		}
	}
}

func TestOriginOf(t *testing.T) {
	cmd := tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 5},
		Chat:     &tgbotapi.Chat{ID: 9},
		Text:     "/help",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
	}}
	o, ok := OriginOf(cmd)
	if !ok || o.UserID != 5 || o.ChatID != 9 || o.Kind != "command" {
		t.Errorf("unexpected origin %+v", o)
	}

	if _, ok := OriginOf(tgbotapi.Update{}); ok {
		t.Error("empty update has no origin")
	}
}
