package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tablify/models"
	"tablify/pkg/log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	name := flag.String("client", "", "client to reset")
	secret := flag.String("secret", "", "new plaintext secret (min 8 chars)")
	flag.Parse()
	if *name == "" || *secret == "" {
		log.Fatalf("--client and --secret are required")
	}
	if len(*secret) < 8 {
		log.Fatalf("secret too short (min 8)")
	}
	loadDotEnv()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	var client models.Client
	if err := db.Where("name = ?", *name).First(&client).Error; err != nil {
		log.Fatalf("client not found: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*secret), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	if err := db.Model(&client).Update("hashed_secret", hash).Error; err != nil {
		log.Fatalf("update failed: %v", err)
	}
	fmt.Printf("Secret reset for client %s\n", client.Name)
}

// Minimal .env loader (non-destructive)
func loadDotEnv() {
	f, err := os.Open(filepath.Clean(".env"))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if eq := strings.IndexByte(line, '='); eq > 0 {
			k := strings.TrimSpace(line[:eq])
			v := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, v)
			}
		}
	}
}
