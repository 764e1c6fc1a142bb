//go:build !js && !wasm

package main

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/u-root/uio/ulog"
	"golang.org/x/net/websocket"
	"golang.org/x/term"
	"tractor.dev/toolkit-go/engine/cli"
	"tractor.dev/v86boot/site"
)

func consoleCmd() *cli.Command {
	var opts serveOptions
	cmd := &cli.Command{
		Usage: "console",
		Short: "attach the terminal to the guest serial port",
		Args:  cli.MaxArgs(0),
		Run: func(ctx *cli.Context, args []string) {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				log.Fatal("console needs a terminal on stdin")
			}
			l, err := net.Listen("tcp", opts.addr)
			if err != nil {
				log.Fatal(err)
			}
			defer l.Close()

			srv := opts.server()
			srv.config.TTY = site.TTYPath
			srv.tty = websocket.Handler(attachTerminal)
			srv.log = ulog.Null

			fmt.Printf("Open http://%s/ and start the VM. Ctrl-D detaches.\r\n", l.Addr())
			fatal(http.Serve(l, srv.handler()))
		},
	}
	opts.bind(cmd)
	return cmd
}

// attachTerminal puts stdin in raw mode and joins it to the socket until
// Ctrl-D.
func attachTerminal(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame

	fd := int(os.Stdin.Fd())
	oldstate, err := term.MakeRaw(fd)
	if err != nil {
		log.Println(err)
		return
	}
	defer term.Restore(fd, oldstate)

	go func() {
		if _, err := io.Copy(os.Stdout, conn); err != nil {
			log.Println(err)
		}
	}()

	buffer := make([]byte, 1024)
	for {
		n, err := os.Stdin.Read(buffer)
		if err != nil {
			log.Println("stdin:", err)
			return
		}
		for i := 0; i < n; i++ {
			// Ctrl-D
			if buffer[i] == 4 {
				conn.Close()
				fmt.Print("detached\r\n")
				return
			}
		}
		if _, err := conn.Write(buffer[:n]); err != nil {
			log.Println(err)
			return
		}
	}
}
