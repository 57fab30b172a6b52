package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"va-bridge/internal/log"
	"va-bridge/internal/sparkcentral"
	"va-bridge/internal/types"
)

// Names of the contexts the contact's data is uploaded to when a conversation starts.
const (
	ContextContactProfile    = "contact_profile"
	ContextContactAttributes = "contact_attributes"
)

// verifySignature rejects requests whose body does not match the signature header.
// The body is buffered and handed on unchanged.
func (s *Server) verifySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodySize+1))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if int64(len(body)) > s.cfg.MaxBodySize {
			s.writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}

		if err := s.verifier.Verify(body, r.Header.Get(sparkcentral.SignatureHeader)); err != nil {
			s.logger.Warn("webhook signature verification failed", "error", err, "remote_addr", r.RemoteAddr)
			http.Error(w, sparkcentral.SignatureHeader+" is invalid", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	ev := sparkcentral.ParseEvent(body)
	logger := log.WithConversation(s.logger, ev.ConversationID).With("event", ev.Type.String())

	switch {
	case ev.Type == sparkcentral.EventConversationStarted:
		if err := s.uploadContact(ctx, ev); err != nil {
			logger.Error("failed to upload contact contexts", "error", err)
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		logger.Info("contact contexts uploaded", "attributes", len(ev.ContactAttributes))
		s.respondJSON(w, http.StatusOK, types.Empty{})

	case ev.Type == sparkcentral.EventInboundMessageReceived && !ev.HasText:
		logger.Debug("inbound message without text ignored")
		s.respondJSON(w, http.StatusOK, types.Empty{})

	case ev.Type == sparkcentral.EventInboundMessageReceived && s.deps.Media != nil && strings.Contains(ev.Text, s.cfg.GIFTrigger):
		term := strings.TrimSpace(strings.ReplaceAll(ev.Text, s.cfg.GIFTrigger, ""))
		conversationID := ev.ConversationID
		taskID, err := s.pool.Submit("send gif", func(ctx context.Context) error {
			return s.sendRandomGIF(ctx, conversationID, term)
		})
		if err != nil {
			logger.Error("failed to schedule gif", "error", err)
		} else {
			logger.Info("gif scheduled", "task_id", taskID, "term", term)
		}
		s.respondJSON(w, http.StatusOK, types.Empty{})

	case ev.Type == sparkcentral.EventInboundMessageReceived:
		res, err := s.deps.Detector.Ask(ctx, ev.ConversationID, ev.Text)
		if err != nil {
			logger.Error("intent detection failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		reply := types.MessageReply{
			SendMessage: types.MessageText{Text: res.FulfillmentText},
			ApplyTopics: []string{res.IntentName},
			Complete:    CompletionFor(res),
		}
		logger.Info("intent detected", "intent", res.IntentName, "action", res.Action, "complete", string(reply.Complete))
		s.respondJSON(w, http.StatusOK, reply)

	default:
		logger.Debug("event ignored", "type", ev.RawType)
		s.respondJSON(w, http.StatusOK, types.Empty{})
	}
}

// uploadContact makes the contact's profile and attributes available to the agent.
func (s *Server) uploadContact(ctx context.Context, ev sparkcentral.Event) error {
	if err := s.deps.Detector.CreateContext(ctx, ev.ConversationID, ContextContactProfile, ev.ContactProfile); err != nil {
		return err
	}
	attrs := make(map[string]any, len(ev.ContactAttributes))
	for k, v := range ev.ContactAttributes {
		attrs[k] = v
	}
	return s.deps.Detector.CreateContext(ctx, ev.ConversationID, ContextContactAttributes, attrs)
}

// sendRandomGIF uploads a random GIF for term and posts it to the conversation, resolving it.
func (s *Server) sendRandomGIF(ctx context.Context, conversationID, term string) error {
	media, err := s.deps.Media.Random(ctx, term)
	if err != nil {
		return fmt.Errorf("find gif for %q: %w", term, err)
	}
	if _, err := s.deps.Messenger.UploadAttachment(ctx, conversationID, media.Data, media.Filename, media.ContentType); err != nil {
		return err
	}
	_, err = s.deps.Messenger.Send(ctx, conversationID, sparkcentral.Action{
		Text:       fmt.Sprintf("Sent %s!", media.Filename),
		Attachment: media.Filename,
		Complete:   types.DirectiveResolved,
	})
	return err
}
