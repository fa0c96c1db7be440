// Command certgen writes a development CA and an HTTPS server certificate
// for the StudySync API into a directory (certs/ by default).
//
// Point the server at server.crt/server.key with TLS_CERT/TLS_KEY and give
// ca.crt to the client with -ca.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/studysync/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server hostnames and IPs")
	reuse := flag.Bool("reuse-ca", false, "sign with an existing ca.crt/ca.key from -dir")
	flag.Parse()

	if err := generate(*dir, splitHosts(*hosts), *reuse); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

func splitHosts(raw string) []string {
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func generate(dir string, hosts []string, reuseCA bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	caCertPath := filepath.Join(dir, "ca.crt")
	caKeyPath := filepath.Join(dir, "ca.key")

	if !reuseCA {
		ca, err := certgen.GenerateCA("StudySync Dev CA")
		if err != nil {
			return err
		}
		if err := ca.WriteFiles(caCertPath, caKeyPath); err != nil {
			return err
		}
	}

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if err != nil {
		return err
	}
	server, err := certgen.GenerateServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return err
	}
	return server.WriteFiles(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
}
