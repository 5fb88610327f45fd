package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/contacteval/contact/game"
)

const (
	roleAttacker = "attacker"
	roleHolder   = "holder"
)

// Remote is a player that lives in another process and answers over NATS
// request/reply. Messages are protobuf-encoded structpb.Structs.
type Remote struct {
	name    string
	nc      *nats.Conn
	subject string
	retries uint
}

func NewRemote(name string, nc *nats.Conn, subject string) *Remote {
	return &Remote{name: name, nc: nc, subject: subject, retries: 2}
}

func (r *Remote) ID() string { return r.name }

func (r *Remote) request(ctx context.Context, fields map[string]any) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return retry.DoWithData(
		func() (*structpb.Struct, error) {
			res, err := r.nc.RequestWithContext(ctx, r.subject, data)
			if err != nil {
				if errors.Is(err, nats.ErrNoResponders) {
					return nil, retry.Unrecoverable(err)
				}
				return nil, err
			}
			resp := &structpb.Struct{}
			if err := proto.Unmarshal(res.Data, resp); err != nil {
				return nil, retry.Unrecoverable(fmt.Errorf("decoding reply: %w", err))
			}
			if msg := resp.GetFields()["error"].GetStringValue(); msg != "" {
				return nil, retry.Unrecoverable(errors.New("remote player returned: " + msg))
			}
			return resp, nil
		},
		retry.Context(ctx),
		retry.Attempts(r.retries),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func historyField(history []game.Round) (string, error) {
	bts, err := json.Marshal(history)
	if err != nil {
		return "", err
	}
	return string(bts), nil
}

func (r *Remote) AttackerMove(ctx context.Context, req game.AttackerRequest) (game.Move, error) {
	history, err := historyField(req.History)
	if err != nil {
		return game.Move{}, err
	}
	fields := map[string]any{
		"role":      roleAttacker,
		"player_id": r.name,
		"prefix":    req.Prefix,
		"attempt":   req.Attempt,
		"history":   history,
	}
	if req.LastError != nil {
		fields["last_error_kind"] = string(req.LastError.Kind)
		fields["last_error_word"] = req.LastError.Word
		fields["last_error"] = req.LastError.Error()
	}
	resp, err := r.request(ctx, fields)
	if err != nil {
		return game.Move{}, err
	}
	f := resp.GetFields()
	return game.Move{
		PrefixWord:    f["prefix_word"].GetStringValue(),
		FullWordGuess: f["full_word_guess"].GetStringValue(),
	}, nil
}

func (r *Remote) HolderMove(ctx context.Context, req game.HolderRequest) (string, error) {
	history, err := historyField(req.History)
	if err != nil {
		return "", err
	}
	resp, err := r.request(ctx, map[string]any{
		"role":          roleHolder,
		"player_id":     r.name,
		"secret_word":   req.SecretWord,
		"prefix":        req.Prefix,
		"contact_count": req.ContactCount,
		"contact_index": req.ContactIndex,
		"history":       history,
	})
	if err != nil {
		return "", err
	}
	return resp.GetFields()["guess"].GetStringValue(), nil
}

// Serve answers move requests for p on subject until ctx is done.
func Serve(ctx context.Context, nc *nats.Conn, subject string, p game.Player, timeout time.Duration) error {
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		log.Debug().Str("subject", subject).Int("bytes", len(m.Data)).Msg("recv")
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		data, err := proto.Marshal(handle(callCtx, p, m.Data))
		if err != nil {
			// Should never happen; still answer so the caller does not wait.
			data = []byte(err.Error())
		}
		if err := m.Respond(data); err != nil {
			log.Err(err).Str("subject", subject).Msg("respond")
		}
	})
	if err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	log.Info().Str("subject", subject).Str("player", p.ID()).Msg("listening")
	<-ctx.Done()
	return sub.Unsubscribe()
}

func errorReply(err error) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"error": structpb.NewStringValue(err.Error()),
	}}
}

func handle(ctx context.Context, p game.Player, data []byte) *structpb.Struct {
	req := &structpb.Struct{}
	if err := proto.Unmarshal(data, req); err != nil {
		return errorReply(fmt.Errorf("decoding request: %w", err))
	}
	f := req.GetFields()
	var history []game.Round
	if h := f["history"].GetStringValue(); h != "" {
		if err := json.Unmarshal([]byte(h), &history); err != nil {
			return errorReply(fmt.Errorf("decoding history: %w", err))
		}
	}
	prefix := f["prefix"].GetStringValue()
	switch f["role"].GetStringValue() {
	case roleAttacker:
		areq := game.AttackerRequest{
			PlayerID: f["player_id"].GetStringValue(),
			Prefix:   prefix,
			History:  history,
			Attempt:  int(f["attempt"].GetNumberValue()),
		}
		if kind := f["last_error_kind"].GetStringValue(); kind != "" {
			areq.LastError = &game.Diagnostic{
				Kind:   game.DiagnosticKind(kind),
				Word:   f["last_error_word"].GetStringValue(),
				Prefix: prefix,
			}
		}
		mv, err := p.AttackerMove(ctx, areq)
		if err != nil {
			return errorReply(err)
		}
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"prefix_word":     structpb.NewStringValue(mv.PrefixWord),
			"full_word_guess": structpb.NewStringValue(mv.FullWordGuess),
		}}
	case roleHolder:
		guess, err := p.HolderMove(ctx, game.HolderRequest{
			PlayerID:     f["player_id"].GetStringValue(),
			SecretWord:   f["secret_word"].GetStringValue(),
			Prefix:       prefix,
			History:      history,
			ContactCount: int(f["contact_count"].GetNumberValue()),
			ContactIndex: int(f["contact_index"].GetNumberValue()),
		})
		if err != nil {
			return errorReply(err)
		}
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"guess": structpb.NewStringValue(guess),
		}}
	}
	return errorReply(fmt.Errorf("unknown role %q", f["role"].GetStringValue()))
}
