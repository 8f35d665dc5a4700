package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"resenas/internal/sync"
	"resenas/pkg/logger"
)

func main() {
	addr := flag.String("addr", envOr("RESENAS_SYNC_ADDR", "127.0.0.1:7070"), "TCP sync server address")
	raw := flag.Bool("raw", false, "print events as received")
	flag.Parse()

	log := logger.Must("info", "console")
	defer func() { _ = log.Sync() }()

	for {
		if err := run(*addr, *raw, os.Stdout, log); err != nil {
			log.Warn("disconnected", zap.String("addr", *addr), zap.Error(err))
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, raw bool, out io.Writer, log *zap.Logger) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Info("connected", zap.String("addr", addr))

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		if raw {
			fmt.Fprintln(out, sc.Text())
			continue
		}
		fmt.Fprintln(out, describe(sc.Bytes()))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

// describe renders one feed line as a short human summary. Lines that are
// not review events are passed through.
func describe(line []byte) string {
	var ev sync.ReviewEvent
	if err := json.Unmarshal(line, &ev); err != nil || !strings.HasPrefix(ev.Type, "resena.") {
		return string(line)
	}

	ts := ev.At.Local().Format("15:04:05")
	switch ev.Type {
	case sync.EventDeleted:
		return fmt.Sprintf("%s  deleted  #%d", ts, ev.ID)
	case sync.EventCreated, sync.EventUpdated:
		verb := strings.TrimPrefix(ev.Type, "resena.")
		if ev.Review == nil {
			return fmt.Sprintf("%s  %-7s  #%d", ts, verb, ev.ID)
		}
		r := ev.Review
		return fmt.Sprintf("%s  %-7s  #%d %q by %s (%d/5)",
			ts, verb, r.ID, r.Title, strings.Join(r.Authors, ", "), r.Rating)
	default:
		return string(line)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
