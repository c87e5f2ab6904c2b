package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"healthqa/internal/service"
	"healthqa/internal/vectorstore"
)

func TestStartupMessage(t *testing.T) {
	wrap := func(component string, err error) error {
		return &service.InitError{Component: component, Err: fmt.Errorf("open: %w", err)}
	}
	assert.Contains(t, startupMessage(wrap("generator", service.ErrMissingCredential)), "GOOGLE_API_KEY")
	assert.Contains(t, startupMessage(wrap("store", vectorstore.ErrStoreInUse)), "Çözüm: Diğer tüm örnekleri kapatıp")
	assert.Contains(t, startupMessage(wrap("store", vectorstore.ErrStoreNotFound)), "indeksleme")
	assert.Contains(t, startupMessage(fmt.Errorf("boom")), "Beklenmeyen hata: boom")
}
