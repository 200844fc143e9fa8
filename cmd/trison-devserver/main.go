package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/you/trisonapp/internal/devserver"
	"github.com/you/trisonapp/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	secret := flag.String("secret", "", "JWT signing secret")
	fixedOTP := flag.String("otp", "", "fixed OTP code; empty means random per request")
	accessTTL := flag.Duration("access-ttl", 15*time.Minute, "access token lifetime")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logging.New(os.Stderr, *level)
	srv := devserver.New(devserver.Config{
		JWTSecret: *secret,
		AccessTTL: *accessTTL,
		FixedOTP:  *fixedOTP,
		Logger:    logger,
	})

	logger.Info("dev backend listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Fatalf("devserver: %v", err)
	}
}
