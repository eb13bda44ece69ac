package notify

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// queueSize limita as mensagens pendentes; quando cheio, a mensagem é
// descartada com log em vez de bloquear os laços de detecção.
const queueSize = 256

type kind int

const (
	kindUser kind = iota
	kindChannel
)

type message struct {
	kind   kind
	target string // user id ou channel id
	text   string
}

// Notifier entrega mensagens ao Discord por uma goroutine dedicada
// alimentada por um canal limitado. Satisfaz os sinks do rastreador e do
// resolvedor de apostas.
type Notifier struct {
	session      *discordgo.Session
	logChannelID string
	log          *zap.SugaredLogger
	queue        chan message
}

func New(session *discordgo.Session, logChannelID string, log *zap.SugaredLogger) *Notifier {
	return &Notifier{
		session:      session,
		logChannelID: logChannelID,
		log:          log,
		queue:        make(chan message, queueSize),
	}
}

// Start consome a fila até o contexto cancelar.
func (n *Notifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-n.queue:
				n.deliver(m)
			}
		}
	}()
}

// NotifyUser enfileira uma DM para o usuário. Nunca bloqueia.
func (n *Notifier) NotifyUser(userID, text string) {
	n.enqueue(message{kind: kindUser, target: userID, text: text})
}

// NotifyChannel enfileira uma mensagem para o canal de log do bot.
func (n *Notifier) NotifyChannel(text string) {
	if n.logChannelID == "" {
		return
	}
	n.enqueue(message{kind: kindChannel, target: n.logChannelID, text: text})
}

func (n *Notifier) enqueue(m message) {
	select {
	case n.queue <- m:
	default:
		n.log.Warnw("notification queue full, dropping message", "target", m.target)
	}
}

func (n *Notifier) deliver(m message) {
	switch m.kind {
	case kindUser:
		ch, err := n.session.UserChannelCreate(m.target)
		if err != nil {
			n.log.Warnw("open dm channel", "user", m.target, "error", err)
			return
		}
		if _, err := n.session.ChannelMessageSend(ch.ID, m.text); err != nil {
			n.log.Warnw("send dm", "user", m.target, "error", err)
		}
	case kindChannel:
		if _, err := n.session.ChannelMessageSend(m.target, m.text); err != nil {
			n.log.Warnw("send channel message", "channel", m.target, "error", err)
		}
	}
}
