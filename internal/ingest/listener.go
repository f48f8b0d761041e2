// Package ingest accepts meter readings pushed over a TCP line protocol.
// Each line is `<meter-id> <cubic-meters> [unix-seconds]`; the timestamp
// defaults to arrival time. Parsed readings are written straight to the
// reading store; malformed lines are logged and dropped without closing
// the connection.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waterlogd/waterlog/internal/store"
	"github.com/waterlogd/waterlog/internal/types"
)

// Listener is the TCP push listener
type Listener struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	addr     string
	store    store.ReadingStore
	logger   *zap.SugaredLogger
	listener net.Listener
	now      func() time.Time
}

// NewListener creates a push listener bound to addr
func NewListener(ctx context.Context, wg *sync.WaitGroup, addr string, readings store.ReadingStore, logger *zap.SugaredLogger) *Listener {
	return &Listener{
		ctx:    ctx,
		wg:     wg,
		addr:   addr,
		store:  readings,
		logger: logger,
		now:    time.Now,
	}
}

// Start binds the listen socket and launches the accept loop
func (l *Listener) Start() error {
	var err error
	l.listener, err = net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("ingest listener could not bind %s: %w", l.addr, err)
	}

	l.logger.Infof("Starting ingest listener on %s...", l.addr)

	l.wg.Add(1)
	go l.acceptLoop()

	go func() {
		<-l.ctx.Done()
		l.listener.Close()
	}()

	return nil
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || l.ctx.Err() != nil {
				return
			}
			l.logger.Errorf("ingest accept error: %v", err)
			continue
		}

		l.wg.Add(1)
		go l.handleConn(conn)
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	l.logger.Debugf("meter connected from %s", remote)

	// Unblocks the scanner on shutdown; done lets the watcher exit when
	// the client hangs up first instead of lingering until ctx fires.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-l.ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reading, err := ParseLine(line, l.now())
		if err != nil {
			l.logger.Warnf("dropping malformed line from %s: %v", remote, err)
			continue
		}

		if err := l.store.AddReading(l.ctx, &reading); err != nil {
			l.logger.Errorf("failed to store pushed reading from %s: %v", remote, err)
		}
	}

	l.logger.Debugf("meter disconnected from %s", remote)
}

// ParseLine parses one push-protocol line into a reading. The meter id
// is carried in the reading's attributes; readings arriving this way are
// tagged with low confidence since nothing has verified them.
func ParseLine(line string, now time.Time) (types.Reading, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return types.Reading{}, fmt.Errorf("expected '<meter-id> <cubic-meters> [unix-seconds]', got %d fields", len(fields))
	}

	value, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return types.Reading{}, fmt.Errorf("bad meter value %q: %w", fields[1], err)
	}
	if value < 0 {
		return types.Reading{}, fmt.Errorf("meter value %v is negative", value)
	}

	ts := now
	if len(fields) == 3 {
		secs, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return types.Reading{}, fmt.Errorf("bad timestamp %q: %w", fields[2], err)
		}
		ts = time.Unix(secs, 0).UTC()
	}

	return types.Reading{
		Timestamp:  ts,
		Value:      value,
		Confidence: types.ConfidenceLow,
		Attributes: map[string]string{"meter": fields[0]},
	}, nil
}
