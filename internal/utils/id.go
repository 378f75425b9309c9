package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const nanoIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func GenerateNanoID(length int) string {
	id, err := gonanoid.Generate(nanoIDAlphabet, length)
	if err != nil {
		return ""
	}
	return id
}

func GenerateNanoIDWithPrefix(prefix string, length int) string {
	return fmt.Sprintf("%s_%s", prefix, GenerateNanoID(length))
}
