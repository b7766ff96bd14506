package docai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/documentai/v1"
	"google.golang.org/api/option"

	"quoteflow/internal/config"
)

// processFieldMask limits the response to what the entity walk reads.
const processFieldMask = "text,entities,pages.tables"

type entityProcessor interface {
	Process(ctx context.Context, content []byte, mimeType string) (*documentai.GoogleCloudDocumentaiV1Document, error)
}

// serviceProcessor calls processors.process on a single configured processor.
type serviceProcessor struct {
	svc  *documentai.Service
	name string
}

func newServiceProcessor(ctx context.Context, cfg config.DocumentAIConfig) (*serviceProcessor, error) {
	var creds *google.Credentials
	var err error
	if cfg.CredentialsFile != "" {
		data, readErr := os.ReadFile(cfg.CredentialsFile)
		if readErr != nil {
			return nil, eris.Wrapf(readErr, "docai: read credentials %s", cfg.CredentialsFile)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, documentai.CloudPlatformScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, documentai.CloudPlatformScope)
	}
	if err != nil {
		return nil, eris.Wrap(err, "docai: load credentials")
	}

	svc, err := documentai.NewService(ctx,
		option.WithTokenSource(creds.TokenSource),
		option.WithEndpoint(fmt.Sprintf("https://%s-documentai.googleapis.com/", cfg.Location)),
	)
	if err != nil {
		return nil, eris.Wrap(err, "docai: create service")
	}
	return &serviceProcessor{svc: svc, name: cfg.ProcessorName()}, nil
}

func (s *serviceProcessor) Process(ctx context.Context, content []byte, mimeType string) (*documentai.GoogleCloudDocumentaiV1Document, error) {
	req := &documentai.GoogleCloudDocumentaiV1ProcessRequest{
		RawDocument: &documentai.GoogleCloudDocumentaiV1RawDocument{
			Content:  base64.StdEncoding.EncodeToString(content),
			MimeType: mimeType,
		},
		FieldMask: processFieldMask,
	}
	resp, err := s.svc.Projects.Locations.Processors.Process(s.name, req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if resp.Document == nil {
		return &documentai.GoogleCloudDocumentaiV1Document{}, nil
	}
	return resp.Document, nil
}
