package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"resenas/internal/reviews"
	"resenas/pkg/logger"
	"resenas/pkg/models"
)

const defaultBaseURL = "http://localhost:3000"

var log *zap.SugaredLogger

func main() {
	log = logger.Must("info", "console").Sugar()
	defer func() { _ = log.Sync() }()

	global := flag.NewFlagSet("resenas", flag.ExitOnError)
	baseURL := global.String("api", envOr("RESENAS_API", defaultBaseURL), "API base URL")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	rest := args[1:]

	api := &apiClient{
		base: strings.TrimRight(*baseURL, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}

	switch cmd {
	case "list":
		var items []models.Review
		if err := api.do(ctx, http.MethodGet, "/api/resenas", nil, &items); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(items)
	case "get":
		id := parseIDArg("get", rest)
		var item models.Review
		if err := api.do(ctx, http.MethodGet, "/api/resenas/"+id, nil, &item); err != nil {
			log.Fatalf("get failed: %v", err)
		}
		printJSON(item)
	case "search":
		handleSearch(ctx, api, rest)
	case "create":
		handleCreate(ctx, api, rest)
	case "update":
		handleUpdate(ctx, api, rest)
	case "delete":
		id := parseIDArg("delete", rest)
		var resp map[string]string
		if err := api.do(ctx, http.MethodDelete, "/api/resenas/"+id, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Println(resp["message"])
	case "export":
		sub := ""
		if len(rest) > 0 {
			sub, rest = rest[0], rest[1:]
		}
		handleExport(ctx, api, sub, rest)
	case "sync":
		sub := ""
		if len(rest) > 0 {
			sub, rest = rest[0], rest[1:]
		}
		handleSync(sub, rest)
	case "watch":
		handleWatch(api.base, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func parseIDArg(name string, args []string) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Int64("id", 0, "review id")
	_ = fs.Parse(args)
	if *id <= 0 {
		log.Fatalf("%s: -id is required", name)
	}
	return strconv.FormatInt(*id, 10)
}

func handleSearch(ctx context.Context, api *apiClient, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	author := fs.String("autor", "", "author substring")
	title := fs.String("titulo", "", "title substring")
	series := fs.String("serie", "", "series substring")
	minRating := fs.Int("valoracion", 0, "minimum rating")
	_ = fs.Parse(args)

	qv := url.Values{}
	if *author != "" {
		qv.Set("autor", *author)
	}
	if *title != "" {
		qv.Set("titulo", *title)
	}
	if *series != "" {
		qv.Set("serie", *series)
	}
	if *minRating != 0 {
		qv.Set("valoracion", strconv.Itoa(*minRating))
	}

	path := "/api/resenas/buscar/query"
	if len(qv) > 0 {
		path += "?" + qv.Encode()
	}
	var items []models.Review
	if err := api.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		log.Fatalf("search failed: %v", err)
	}
	printJSON(items)
}

func handleCreate(ctx context.Context, api *apiClient, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	payload := reviewFlags(fs)
	_ = fs.Parse(args)

	var item models.Review
	if err := api.do(ctx, http.MethodPost, "/api/resenas", payload.body(fs), &item); err != nil {
		log.Fatalf("create failed: %v", err)
	}
	printJSON(item)
}

func handleUpdate(ctx context.Context, api *apiClient, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.Int64("id", 0, "review id")
	payload := reviewFlags(fs)
	_ = fs.Parse(args)
	if *id <= 0 {
		log.Fatal("update: -id is required")
	}

	var item models.Review
	path := "/api/resenas/" + strconv.FormatInt(*id, 10)
	if err := api.do(ctx, http.MethodPut, path, payload.body(fs), &item); err != nil {
		log.Fatalf("update failed: %v", err)
	}
	printJSON(item)
}

type reviewPayload struct {
	authors  *string
	title    *string
	series   *string
	rating   *int
	comments *string
}

func reviewFlags(fs *flag.FlagSet) reviewPayload {
	return reviewPayload{
		authors:  fs.String("autores", "", "authors, separated by "+reviews.AuthorSep),
		title:    fs.String("titulo", "", "title"),
		series:   fs.String("serie", "", "series"),
		rating:   fs.Int("valoracion", 0, "rating 1-5"),
		comments: fs.String("comentarios", "", "comments"),
	}
}

// body sends only the flags given on the command line, so an update leaves
// the other fields alone.
func (p reviewPayload) body(fs *flag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "autores":
			out["autores"] = splitAuthors(*p.authors)
		case "titulo":
			out["titulo"] = *p.title
		case "serie":
			out["serie"] = *p.series
		case "valoracion":
			out["valoracion"] = *p.rating
		case "comentarios":
			out["comentarios"] = *p.comments
		}
	})
	return out
}

func splitAuthors(raw string) []string {
	out := []string{}
	for _, a := range strings.Split(raw, reviews.AuthorSep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func handleExport(ctx context.Context, api *apiClient, sub string, args []string) {
	switch sub {
	case "json", "csv":
		fs := flag.NewFlagSet("export "+sub, flag.ExitOnError)
		out := fs.String("out", "data/resenas."+sub, "output path, - for stdout")
		_ = fs.Parse(args)

		var items []models.Review
		if err := api.do(ctx, http.MethodGet, "/api/resenas", nil, &items); err != nil {
			log.Fatalf("export %s failed: %v", sub, err)
		}
		if err := writeExport(*out, sub, items); err != nil {
			log.Fatalf("write %s failed: %v", sub, err)
		}
		if *out != "-" {
			log.Infof("exported %d reviews to %s", len(items), *out)
		}
	default:
		log.Fatal("usage: resenas export <json|csv> [-out path]")
	}
}

func writeExport(path, format string, items []models.Review) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return reviews.EncodeCSV(w, items)
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func handleSync(sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP sync server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runSyncTCP(*addr, *pretty); err != nil {
				log.Warnf("[sync] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		log.Fatal("usage: resenas sync listen [-addr host:port]")
	}
}

func handleWatch(baseURL string, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
	_ = fs.Parse(args)

	endpoint := *wsURL
	if endpoint == "" {
		var err error
		endpoint, err = websocketURL(baseURL, "/ws")
		if err != nil {
			log.Fatalf("ws url: %v", err)
		}
	}
	if err := runWebSocket(endpoint); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}

func runSyncTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Infof("[sync] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		printEvent(reader.Bytes(), pretty)
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infof("[watch] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		printEvent([]byte(strings.TrimSpace(string(msg))), true)
	}
}

func printEvent(line []byte, pretty bool) {
	if !pretty {
		fmt.Println(string(line))
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Println(string(line))
		return
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Println(string(b))
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("resenas [-api URL] <command> [flags]")
	fmt.Println("commands:")
	fmt.Println("  list")
	fmt.Println("  get -id N")
	fmt.Println("  search [-autor s] [-titulo s] [-serie s] [-valoracion n]")
	fmt.Println("  create -autores 'a;b' -titulo s [-serie s] [-valoracion n] [-comentarios s]")
	fmt.Println("  update -id N [-autores 'a;b'] [-titulo s] [-serie s] [-valoracion n] [-comentarios s]")
	fmt.Println("  delete -id N")
	fmt.Println("  export json|csv [-out path]")
	fmt.Println("  sync listen [-addr host:port]")
	fmt.Println("  watch [-ws url]")
}
