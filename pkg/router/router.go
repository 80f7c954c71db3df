// Package router dispatches inbound session events: it classifies each
// message, drives the receipt pipeline for qualifying media and replies to
// the sender. One message's failure never crashes the session or blocks the
// next message.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lfsouza/finzap/pkg/bus"
	"github.com/lfsouza/finzap/pkg/extract"
	"github.com/lfsouza/finzap/pkg/ledger"
	"github.com/lfsouza/finzap/pkg/logger"
	"github.com/lfsouza/finzap/pkg/media"
	"github.com/lfsouza/finzap/pkg/parser"
)

// allowedDocMime lists the document content types accepted as receipts.
var allowedDocMime = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

type Router struct {
	msgBus         *bus.MessageBus
	ingestor       *media.Ingestor
	extractor      extract.Client
	ledger         *ledger.Ledger
	extractTimeout time.Duration
}

func NewRouter(
	msgBus *bus.MessageBus,
	ingestor *media.Ingestor,
	extractor extract.Client,
	txLedger *ledger.Ledger,
	extractTimeout time.Duration,
) *Router {
	return &Router{
		msgBus:         msgBus,
		ingestor:       ingestor,
		extractor:      extractor,
		ledger:         txLedger,
		extractTimeout: extractTimeout,
	}
}

// Run consumes inbound messages until ctx is cancelled. Each message is
// handled on its own goroutine so a slow extraction never blocks intake.
func (r *Router) Run(ctx context.Context) {
	for {
		msg, ok := r.msgBus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		if msg.FromSelf || msg.Internal {
			// Protocol and self-originated events are dropped before
			// classification, with no reply.
			continue
		}
		go r.Handle(ctx, msg)
	}
}

// Handle processes one inbound message end to end. Panics are contained
// here: logged and answered with a generic failure reply.
func (r *Router) Handle(ctx context.Context, msg bus.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF("router", "Panic while handling message", map[string]any{
				"sender": msg.SenderID,
				"panic":  fmt.Sprint(rec),
			})
			r.reply(ctx, msg.SenderID, genericFailureReply)
		}
	}()

	logger.InfoCF("router", "Inbound message", map[string]any{
		"sender": msg.SenderID,
		"name":   msg.DisplayName,
		"kind":   msg.Kind.String(),
	})

	if !qualifies(msg) {
		r.reply(ctx, msg.SenderID, onboardingReply(msg.DisplayName))
		return
	}

	r.processReceipt(ctx, msg)
}

// qualifies applies the receipt candidate rule: an image attachment, or a
// document whose declared content type is an allowed receipt format.
func qualifies(msg bus.InboundMessage) bool {
	if msg.Media == nil {
		return false
	}
	switch msg.Kind {
	case bus.PayloadImage:
		return true
	case bus.PayloadDocument:
		return allowedDocMime[msg.Media.MimeType]
	default:
		return false
	}
}

func (r *Router) processReceipt(ctx context.Context, msg bus.InboundMessage) {
	r.reply(ctx, msg.SenderID, processingReply)

	artifact, err := r.ingestor.Ingest(ctx, *msg.Media)
	if err != nil {
		logger.WarnCF("router", "Media download failed", map[string]any{
			"sender": msg.SenderID,
			"error":  err.Error(),
		})
		r.reply(ctx, msg.SenderID, downloadFailureReply)
		return
	}
	defer artifact.Release()

	tx, err := r.extractTransaction(ctx, artifact, msg.DisplayName)
	if err != nil {
		logger.ErrorCF("router", "Extraction pipeline failed", map[string]any{
			"sender": msg.SenderID,
			"error":  err.Error(),
		})
		r.reply(ctx, msg.SenderID, failureReply(failureReason(err)))
		return
	}

	r.reply(ctx, msg.SenderID, confirmationReply(tx))

	rec := ledger.NewRecord(tx, msg.SenderID)
	if err := r.ledger.Append(rec); err != nil {
		// Best-effort relative to the reply already sent.
		logger.ErrorCF("router", "Ledger append failed", map[string]any{
			"sender": msg.SenderID,
			"error":  err.Error(),
		})
		return
	}
	logger.InfoCF("router", "Transaction recorded", map[string]any{
		"sender":   msg.SenderID,
		"merchant": tx.Merchant,
		"amount":   tx.Amount.String(),
		"category": tx.Category,
	})
}

func (r *Router) extractTransaction(
	ctx context.Context,
	artifact *media.Artifact,
	displayName string,
) (*parser.Transaction, error) {
	extractCtx, cancel := context.WithTimeout(ctx, r.extractTimeout)
	defer cancel()

	raw, err := r.extractor.Extract(extractCtx, extract.Request{
		ImageBytes:        artifact.Bytes,
		MimeType:          artifact.MimeType,
		SenderDisplayName: displayName,
	})
	if err != nil {
		return nil, err
	}

	return parser.Parse(raw)
}

func (r *Router) reply(ctx context.Context, recipientID, text string) {
	if err := r.msgBus.PublishOutbound(ctx, bus.OutboundMessage{
		RecipientID: recipientID,
		Text:        text,
	}); err != nil {
		logger.WarnCF("router", "Reply publish failed", map[string]any{
			"recipient": recipientID,
			"error":     err.Error(),
		})
	}
}

// failureReason maps pipeline errors to the sender-facing reason line.
func failureReason(err error) string {
	var provErr *extract.ProviderError
	if errors.As(err, &provErr) {
		return provErr.UserMessage()
	}
	var valErr *parser.ValidationError
	if errors.As(err, &valErr) {
		return valErr.UserMessage()
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return "A IA retornou um formato inválido. Tente enviar uma imagem mais clara."
	}
	return "Erro inesperado ao processar a imagem."
}

const processingReply = "⏳ Processando sua imagem... Aguarde um momento!"

const downloadFailureReply = "❌ Não foi possível baixar a imagem. Tente enviar novamente."

const genericFailureReply = "❌ Ocorreu um erro inesperado. Tente novamente mais tarde."

func onboardingReply(displayName string) string {
	if displayName == "" {
		displayName = "Usuário"
	}
	return strings.TrimSpace(fmt.Sprintf(`
👋 *Olá, %s!*

Bem-vindo ao *Bot de Gestão Financeira*! 💰

📸 *Como usar:*
Envie uma foto do seu comprovante de pagamento, nota fiscal ou recibo.

✅ Eu vou extrair automaticamente:
• Data da compra
• Nome do estabelecimento
• Valor total pago
• Categoria do gasto
• Descrição resumida

💡 *Dica:* Quanto mais nítida a imagem, melhor o reconhecimento!`, displayName))
}

func failureReply(reason string) string {
	return strings.TrimSpace(fmt.Sprintf(`
❌ *Não foi possível processar a imagem*

Motivo: %s

💡 *Dicas para melhorar o reconhecimento:*
• Envie a imagem com boa iluminação
• Certifique-se que o texto está legível
• Evite cortar informações importantes
• Tente enviar em outro ângulo

Envie a imagem novamente ou tente outra foto.`, reason))
}

func confirmationReply(tx *parser.Transaction) string {
	amount := strings.ReplaceAll(tx.Amount.StringFixed(2), ".", ",")
	return strings.TrimSpace(fmt.Sprintf(`
✅ *Gasto Registrado com Sucesso!*

📅 *Data:* %s
👤 *Usuário:* %s
🏪 *Estabelecimento:* %s
💵 *Valor:* R$ %s
%s *Categoria:* %s
📝 *Descrição:* %s

💡 Dica: Envie outro comprovante para continuar registrando seus gastos!`,
		tx.Date, tx.User, tx.Merchant, amount,
		parser.Emoji(tx.Category), tx.Category, tx.ShortDescription))
}
