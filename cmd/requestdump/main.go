// Command requestdump accepts raw TCP connections and prints what the
// request parser makes of each one.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"sort"

	"github.com/lghartmann/formhttpd/internal/logging"
	"github.com/lghartmann/formhttpd/internal/request"
)

func main() {
	addr := flag.String("addr", ":42069", "TCP address to listen on")
	flag.Parse()
	log := logging.New(os.Stderr, "info", "console")

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("unable to listen")
	}
	log.Info().Str("addr", listener.Addr().String()).Msg("listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Fatal().Err(err).Msg("error accepting")
		}

		r, err := request.RequestFromReader(bufio.NewReader(conn), request.Limits{})
		conn.Close()
		if err != nil {
			log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("unparsable request")
			continue
		}

		dump(os.Stdout, r)
	}
}

func dump(w io.Writer, r *request.Request) {
	fmt.Fprintf(w, "Request line:\n")
	fmt.Fprintf(w, "- Method: %s\n", r.RequestLine.Method)
	fmt.Fprintf(w, "- Target: %s\n", r.RequestLine.RequestTarget)
	fmt.Fprintf(w, "- Version: %s\n", r.RequestLine.HttpVersion)

	fmt.Fprintf(w, "Headers:\n")
	r.Headers.ForEach(func(n, v string) {
		fmt.Fprintf(w, "- %s: %s\n", n, v)
	})

	if !r.HasBody() {
		return
	}
	fmt.Fprintf(w, "Form:\n")
	keys := make([]string, 0, len(r.Form))
	for k := range r.Form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "- %s: %s\n", k, r.Form[k])
	}
}
