package server

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"nhooyr.io/websocket"
)

var (
	ErrClientClosed = errors.New("client closed")
	ErrSlowConsumer = errors.New("send queue full")
)

const defaultWriteTimeout = 5 * time.Second

type WSWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, msg []byte) error
}

type WSReader interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
}

type WSCloser interface {
	Close(code websocket.StatusCode, reason string) error
}

type WSReadWriteCloser interface {
	WSReader
	WSWriter
	WSCloser
}

type ClientParams struct {
	Log        logger.Logger
	ConnID     identifiers.ConnID
	Conn       WSReadWriteCloser
	Serializer *message.Serializer
	// QueueSize is the number of outbound frames buffered before the client
	// is closed as a slow consumer.
	QueueSize    int
	WriteTimeout time.Duration
}

// Client is an abstraction for sending to and receiving from a websocket.
// Writes are queued and sent by WriteLoop, so Write never waits on the
// network.
type Client struct {
	log          logger.Logger
	connID       identifiers.ConnID
	conn         WSReadWriteCloser
	serializer   *message.Serializer
	writeTimeout time.Duration

	queue chan []byte

	closeOnce   sync.Once
	closed      chan struct{}
	closeCode   websocket.StatusCode
	closeReason string

	errMu sync.RWMutex
	err   error
}

func NewClient(params ClientParams) *Client {
	if params.QueueSize <= 0 {
		params.QueueSize = 64
	}

	if params.WriteTimeout <= 0 {
		params.WriteTimeout = defaultWriteTimeout
	}

	if params.Serializer == nil {
		params.Serializer = message.NewSerializer()
	}

	return &Client{
		log: params.Log.WithNamespaceAppended("ws").WithCtx(logger.Ctx{
			"conn_id": params.ConnID,
		}),
		connID:       params.ConnID,
		conn:         params.Conn,
		serializer:   params.Serializer,
		writeTimeout: params.WriteTimeout,
		queue:        make(chan []byte, params.QueueSize),
		closed:       make(chan struct{}),
	}
}

func (c *Client) ID() identifiers.ConnID {
	return c.connID
}

// Write queues msg. When the queue is full the client is closed instead of
// blocking the caller.
func (c *Client) Write(msg message.Message) error {
	data, err := c.serializer.Serialize(msg)
	if err != nil {
		return errors.Annotatef(err, "serialize %s", msg.Type)
	}

	select {
	case <-c.closed:
		return errors.Trace(ErrClientClosed)
	default:
	}

	select {
	case c.queue <- data:
		return nil
	default:
		c.Close(websocket.StatusPolicyViolation, "slow consumer")

		return errors.Trace(ErrSlowConsumer)
	}
}

// Close marks the client as closed. The websocket itself is closed by
// WriteLoop so that callers never wait for the close handshake.
func (c *Client) Close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.closed)
	})
}

// Closed is closed after Close was called.
func (c *Client) Closed() <-chan struct{} {
	return c.closed
}

// WriteLoop writes queued frames until ctx is done or the client is closed.
func (c *Client) WriteLoop(ctx context.Context) {
	for {
		select {
		case data := <-c.queue:
			if err := c.write(ctx, data); err != nil {
				c.log.Debug("Write failed", logger.Ctx{
					"err": err,
				})

				c.Close(websocket.StatusInternalError, "")
			}
		case <-c.closed:
			c.log.Info("Closing connection", logger.Ctx{
				"code":   c.closeCode,
				"reason": c.closeReason,
			})

			_ = c.conn.Close(c.closeCode, c.closeReason)

			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	err := c.conn.Write(ctx, websocket.MessageText, data)

	return errors.Annotate(err, "write")
}

func (c *Client) read(ctx context.Context) (msg message.Message, err error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		// Not annotated, callers inspect it with websocket.CloseStatus.
		return msg, err
	}

	if typ != websocket.MessageText {
		return msg, errors.Annotatef(errInvalidFrame, "type: %s", typ)
	}

	msg, err = c.serializer.Deserialize(data)
	if err != nil {
		return msg, errors.Annotatef(errInvalidFrame, "%s", err)
	}

	return msg, nil
}

var errInvalidFrame = errors.New("invalid frame")

func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.err
}

// Subscribe starts reading from the websocket. Frames that cannot be
// decoded are logged and skipped. The channel is closed on the first read
// error, which is then available from Err.
func (c *Client) Subscribe(ctx context.Context) <-chan message.Message {
	msgChan := make(chan message.Message)

	go func() {
		defer close(msgChan)

		for {
			msg, err := c.read(ctx)
			if errors.Cause(err) == errInvalidFrame {
				c.log.Warn("Skipped invalid frame", logger.Ctx{
					"err": err,
				})

				continue
			}

			if err != nil {
				c.errMu.Lock()
				c.err = err
				c.errMu.Unlock()

				return
			}

			select {
			case msgChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan
}
