//go:build !js && !wasm

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/u-root/uio/uio"
	"github.com/u-root/uio/ulog"
	"tractor.dev/toolkit-go/engine/cli"
	"tractor.dev/toolkit-go/engine/fs"
	"tractor.dev/v86boot/media"
	"tractor.dev/v86boot/site"
	"tractor.dev/v86boot/vm"
	"tractor.dev/v86boot/vmlog"
)

const wasmName = "v86boot.wasm"

func serveCmd() *cli.Command {
	var opts serveOptions
	cmd := &cli.Command{
		Usage: "serve",
		Short: "serve the boot page",
		Args:  cli.MaxArgs(0),
		Run: func(ctx *cli.Context, args []string) {
			srv := opts.server()
			log.Printf("Serving v86boot at http://%s/ ...\n", opts.addr)
			if err := http.ListenAndServe(opts.addr, loggerMiddleware(srv.log, srv.handler())); err != nil {
				log.Fatal(err)
			}
		},
	}
	opts.bind(cmd)
	return cmd
}

type serveOptions struct {
	addr     string
	wasmDir  string
	v86Dir   string
	assets   string
	cdrom    string
	hda      string
	mirror   bool
	defaults string
}

func (o *serveOptions) bind(cmd *cli.Command) {
	cmd.Flags().StringVar(&o.addr, "addr", "localhost:7654", "listen address")
	cmd.Flags().StringVar(&o.wasmDir, "wasm", "./build", "directory holding "+wasmName)
	cmd.Flags().StringVar(&o.v86Dir, "v86", "", "serve engine assets from this directory at /v86/")
	cmd.Flags().StringVar(&o.assets, "assets", "", "engine assets base URL")
	cmd.Flags().StringVar(&o.cdrom, "cdrom", "", "preload a CD-ROM image")
	cmd.Flags().StringVar(&o.hda, "hda", "", "preload a hard disk image")
	cmd.Flags().BoolVar(&o.mirror, "mirror", false, "mirror the page log to stdout")
	cmd.Flags().StringVar(&o.defaults, "defaults", "", "initial control settings, e.g. \"-m 1G -acpi\"")
}

// server checks the options and builds the server they describe. It exits
// on invalid options.
func (o *serveOptions) server() *server {
	found, err := fs.Exists(os.DirFS(o.wasmDir), wasmName)
	fatal(err)
	if !found {
		fmt.Printf("%s not found in %s.\n\n", wasmName, o.wasmDir)
		fmt.Println("build it with:")
		fmt.Printf("  GOOS=js GOARCH=wasm go build -o %s/%s ./wasm\n\n", o.wasmDir, wasmName)
		os.Exit(1)
	}

	srv := &server{
		wasmDir: o.wasmDir,
		v86Dir:  o.v86Dir,
		media:   map[media.Slot]string{},
		log:     ulog.Log,
	}
	srv.config.Assets = o.assets
	if o.v86Dir != "" && o.assets == "" {
		srv.config.Assets = "/v86/"
	}
	if o.defaults != "" {
		flags := strings.Fields(o.defaults)
		_, err := vm.ParseFlags(flags)
		fatal(err)
		srv.config.Defaults = flags
	}
	if o.mirror {
		srv.config.Mirror = site.MirrorPath
	}
	if o.cdrom != "" {
		fatal(srv.publish(media.CDROM, o.cdrom))
	}
	if o.hda != "" {
		fatal(srv.publish(media.HDA, o.hda))
	}
	return srv
}

type server struct {
	wasmDir string
	v86Dir  string
	config  site.Config
	media   map[media.Slot]string
	log     ulog.Logger

	// tty serves the serial console socket when set.
	tty http.Handler

	// onEntry receives mirrored log entries. Defaults to printing them.
	onEntry func(vmlog.Entry)
}

// publish makes the image at path available for preloading into slot.
func (s *server) publish(slot media.Slot, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s: is a directory", path)
	}
	s.media[slot] = path
	s.config.Media = append(s.config.Media, site.MediaEntry{
		Slot: slot.String(),
		Name: filepath.Base(path),
		Size: fi.Size(),
		URL:  "/.media/" + slot.String(),
	})
	return nil
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServerFS(site.Dir))
	mux.HandleFunc("/"+wasmName, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/wasm")
		http.ServeFile(w, r, filepath.Join(s.wasmDir, wasmName))
	})
	mux.HandleFunc("/wasm_exec.js", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, s.wasmExec())
	})
	mux.HandleFunc(site.ConfigPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.config); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/.media/", s.serveMedia)
	mux.HandleFunc(site.MirrorPath, s.serveLog)
	if s.tty != nil {
		mux.Handle(site.TTYPath, s.tty)
	}
	if s.v86Dir != "" {
		mux.Handle("/v86/", http.StripPrefix("/v86/", http.FileServer(http.Dir(s.v86Dir))))
	}
	return isolated(mux)
}

// wasmExec locates the Go runtime shim, preferring a copy next to the
// wasm binary.
func (s *server) wasmExec() string {
	local := filepath.Join(s.wasmDir, "wasm_exec.js")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	for _, dir := range []string{"lib/wasm", "misc/wasm"} {
		p := filepath.Join(runtime.GOROOT(), dir, "wasm_exec.js")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return local
}

func (s *server) serveMedia(w http.ResponseWriter, r *http.Request) {
	slot, ok := media.ParseSlot(strings.TrimPrefix(r.URL.Path, "/.media/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	path, ok := s.media[slot]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fi, err := os.Stat(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	f := uio.NewLazyFile(path)
	defer f.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, filepath.Base(path), fi.ModTime(), io.NewSectionReader(f, 0, fi.Size()))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveLog receives the page's mirrored log frames.
func (s *server) serveLog(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("log mirror: %v", err)
		return
	}
	defer conn.Close()
	emit := s.onEntry
	if emit == nil {
		emit = func(e vmlog.Entry) { fmt.Print(e.Line()) }
	}
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Printf("log mirror: %v", err)
			}
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		e, err := vmlog.UnmarshalEntry(data)
		if err != nil {
			s.log.Printf("log mirror: %v", err)
			continue
		}
		emit(e)
	}
}

// isolated sets the cross-origin isolation headers the engine needs for
// shared memory.
func isolated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Add("Cross-Origin-Embedder-Policy", "require-corp")
		next.ServeHTTP(w, r)
	})
}

func loggerMiddleware(l ulog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		l.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
