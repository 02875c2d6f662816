package handlers

import (
	"github.com/feichai0017/doc-converter/internal/service/convert"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

type Handlers struct {
	Convert *ConvertHandler
}

func NewHandlers(
	convertService convert.Converter,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Convert: NewConvertHandler(convertService, log),
	}
}
