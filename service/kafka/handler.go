package kafka

import (
	"sync"

	"github.com/pkg/errors"
)

type MessageHandler func(topic string, key, value []byte) error

var (
	handlerMu  sync.RWMutex
	handlerMap = make(map[string]MessageHandler)
)

func RegisterHandler(topic string, handler MessageHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	handlerMap[topic] = handler
}

func GetHandler(topic string) (MessageHandler, error) {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	if h, ok := handlerMap[topic]; ok {
		return h, nil
	}
	return nil, errors.Errorf("no handler registered for topic: %s", topic)
}
