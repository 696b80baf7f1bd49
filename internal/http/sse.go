package httpserver

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// SSEBroker fans status events out to /api/events subscribers.
type SSEBroker struct {
	clients    map[chan string]bool
	newClients chan chan string
	defunct    chan chan string
	messages   chan string
	mutex      sync.Mutex
	log        zerolog.Logger
}

func NewSSEBroker(logger zerolog.Logger) *SSEBroker {
	b := &SSEBroker{
		clients:    make(map[chan string]bool),
		newClients: make(chan chan string),
		defunct:    make(chan chan string),
		messages:   make(chan string),
		log:        logger.With().Str("component", "sse").Logger(),
	}
	go b.start()
	return b
}

func (b *SSEBroker) start() {
	for {
		select {
		case s := <-b.newClients:
			b.mutex.Lock()
			b.clients[s] = true
			b.mutex.Unlock()
			b.log.Debug().Int("clients", len(b.clients)).Msg("event stream subscriber added")

		case s := <-b.defunct:
			b.mutex.Lock()
			delete(b.clients, s)
			close(s)
			b.mutex.Unlock()
			b.log.Debug().Int("clients", len(b.clients)).Msg("event stream subscriber removed")

		case msg := <-b.messages:
			b.mutex.Lock()
			for s := range b.clients {
				select {
				case s <- msg:
				default:
					// Client is blocked, skip
				}
			}
			b.mutex.Unlock()
		}
	}
}

func (b *SSEBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	messageChan := make(chan string)
	b.newClients <- messageChan

	notify := r.Context().Done()

	go func() {
		<-notify
		b.defunct <- messageChan
	}()

	for {
		msg, open := <-messageChan
		if !open {
			break
		}
		fmt.Fprintf(w, "data: %s\n\n", msg)
		w.(http.Flusher).Flush()
	}
}

func (b *SSEBroker) Broadcast(msg string) {
	b.messages <- msg
}
