package recordstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gowso/bizsites/pkg/model"
	"github.com/sirupsen/logrus"
)

// ExportColumns is the header of a business export, in write order.
var ExportColumns = []string{"business_name", "address", "phone", "maps_url", "subdomain"}

// ObjectGetter is the slice of the S3 API needed to read an export. *s3.S3 satisfies it.
type ObjectGetter interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// Export is a read-only Finder over a CSV export of the business table.
type Export struct {
	records []model.BusinessRecord
}

func NewExport(records []model.BusinessRecord) *Export {
	return &Export{records: records}
}

// OpenExport loads an export from a local path or an s3://bucket/key location.
func OpenExport(ctx context.Context, location string, objects ObjectGetter) (*Export, error) {
	var (
		r   io.ReadCloser
		err error
	)

	if strings.HasPrefix(location, "s3://") {
		r, err = openS3(ctx, location, objects)
	} else {
		r, err = os.Open(location)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	records, err := ReadExport(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", location, err)
	}

	logrus.Infof("Loaded %d businesses from %s", len(records), location)
	return NewExport(records), nil
}

func openS3(ctx context.Context, location string, objects ObjectGetter) (io.ReadCloser, error) {
	if objects == nil {
		return nil, fmt.Errorf("no S3 client configured for %s", location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid export location %s: %w", location, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("invalid export location %s: expected s3://bucket/key", location)
	}

	out, err := objects.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	return out.Body, nil
}

func (e *Export) FindByKey(_ context.Context, key string) (model.BusinessRecord, error) {
	rec, ok := Match(e.records, key)
	if !ok {
		return model.BusinessRecord{}, ErrNotFound
	}
	return rec, nil
}

func (e *Export) Records() []model.BusinessRecord {
	return e.records
}

// ReadExport parses a CSV export. Columns are matched by header name, so extra columns are ignored.
// A row with a subdomain counts as provisioned.
func ReadExport(r io.Reader) ([]model.BusinessRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	index := map[string]int{}
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := index["business_name"]; !ok {
		return nil, errors.New("missing business_name column")
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []model.BusinessRecord
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		line++

		rec := model.BusinessRecord{
			ID:        fmt.Sprintf("row-%d", line),
			Name:      field(row, "business_name"),
			Address:   field(row, "address"),
			Phone:     field(row, "phone"),
			MapsURL:   field(row, "maps_url"),
			Subdomain: field(row, "subdomain"),
		}
		rec.Provisioned = rec.Subdomain != ""
		records = append(records, rec)
	}

	return records, nil
}

// WriteExport writes records as CSV, with the header when header is true.
func WriteExport(w io.Writer, records []model.BusinessRecord, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(ExportColumns); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if err := cw.Write([]string{rec.Name, rec.Address, rec.Phone, rec.MapsURL, rec.Subdomain}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
