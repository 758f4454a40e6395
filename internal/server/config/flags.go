package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/imgvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l int      rate limit, requests per second per client
//	-k int      rate limit burst
//	-w int      shutdown timeout, seconds
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The shutdown timeout is accepted as an integer in seconds and then
//     converted to a time.Duration value.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-u", "-p", "-b", "-g", "-e", "-l", "-k", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.IntVar(&config.RateLimitRPS, "l", config.RateLimitRPS, "rate limit (requests per second per client)")
	fs.IntVar(&config.RateLimitBurst, "k", config.RateLimitBurst, "rate limit burst")

	shutdownTimeout := fs.Int("w", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
}
