//go:build ignore

// generate_hash.go — утилита для генерации Argon2id хеша пароля админки.
// Запуск: go run scripts/generate_hash.go ваш_пароль
// Без аргумента пароль читается из stdin (не попадёт в историю shell).
//
// Результат вставьте в .env как ADMIN_PASSWORD_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"glowshot.ru/rating-bot/internal/features/admin"
)

func main() {
	password := ""
	if len(os.Args) >= 2 {
		password = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "Пароль: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "Ошибка чтения пароля: %v\n", err)
			os.Exit(1)
		}
		password = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Println("Использование: go run scripts/generate_hash.go <пароль>")
		os.Exit(1)
	}

	hash, err := admin.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Println("Хеш пароля (вставьте в .env как ADMIN_PASSWORD_HASH):")
	fmt.Println(hash)
}
