package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juicer-platform/cortex/service/messaging"
	"github.com/juicer-platform/cortex/service/messaging/memory"
	"github.com/stretchr/testify/assert"
)

type payload struct {
	Step  int
	Final bool
}

func TestBroker_Routing(t *testing.T) {
	broker := NewBroker[payload](func(e *Event[payload]) bool { return e.Data.Final })
	var r1, r2 []int
	broker.Subscribe("r1", func(e *Event[payload]) { r1 = append(r1, e.Data.Step) })
	unsubscribe := broker.Subscribe("r2", func(e *Event[payload]) { r2 = append(r2, e.Data.Step) })

	broker.Handle(NewEvent(&Context{RequestID: "r1"}, payload{Step: 1}))
	broker.Handle(NewEvent(&Context{RequestID: "r2"}, payload{Step: 7}))
	unsubscribe()
	broker.Handle(NewEvent(&Context{RequestID: "r2"}, payload{Step: 8}))
	broker.Handle(NewEvent(&Context{RequestID: "r1"}, payload{Step: 2, Final: true}))
	broker.Handle(NewEvent(&Context{RequestID: "r1"}, payload{Step: 3}))

	assert.Equal(t, []int{1, 2}, r1)
	assert.Equal(t, []int{7}, r2)
	assert.Equal(t, 0, broker.Subscribers("r1"))
	assert.Equal(t, 0, broker.Subscribers("r2"))
}

func TestListener_Order(t *testing.T) {
	publisher := NewPublisher[payload](memory.NewQueue[Event[payload]](memory.DefaultConfig()))
	broker := NewBroker[payload](nil)

	var mux sync.Mutex
	var steps []int
	done := make(chan struct{})
	broker.Subscribe("r1", func(e *Event[payload]) {
		mux.Lock()
		steps = append(steps, e.Data.Step)
		count := len(steps)
		mux.Unlock()
		if count == 5 {
			close(done)
		}
	})

	listener := NewListener[payload](publisher, broker.Handle)
	listener.Start(context.Background())
	defer listener.Stop()

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		assert.NoError(t, publisher.Publish(ctx, NewEvent(&Context{RequestID: "r1", EventType: TypeProgress}, payload{Step: i})))
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	mux.Lock()
	defer mux.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, steps)
}

func TestPublisher_Offer(t *testing.T) {
	config := memory.DefaultConfig()
	config.QueueBuffer = 1
	publisher := NewPublisher[payload](memory.NewQueue[Event[payload]](config))
	ctx := context.Background()

	first := NewEvent(&Context{RequestID: "r1", EventType: TypeProgress}, payload{Step: 1})
	assert.NoError(t, publisher.Offer(ctx, first))
	assert.False(t, first.CreatedAt.IsZero())
	assert.ErrorIs(t, publisher.Offer(ctx, NewEvent(&Context{RequestID: "r1"}, payload{Step: 2})), messaging.ErrFull)

	consumed, err := publisher.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, consumed.Data.Step)
}
