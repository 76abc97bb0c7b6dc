package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tablify/pkg/log"
	"tablify/process/report"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	client := flag.String("client", "", "client to report for (default all)")
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching extractions")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := report.Run(os.Stdout, db, *client, *month, *list); err != nil {
		log.Fatalf("%v", err)
	}
}
