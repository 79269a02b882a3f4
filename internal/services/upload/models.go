package upload

import (
	"llm-stock-prediction/internal/common/logger"
	"llm-stock-prediction/internal/models"
)

// Document is a stored upload or an embedded sample ready to be served.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type ServiceDependencies struct {
	Logger  logger.Logger
	Uploads models.UploadRepository
}
