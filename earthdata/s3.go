/*
Copyright © 2022 the icesat2 authors.
This file is part of the icesat2 client.

The icesat2 client is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

The icesat2 client is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package earthdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

// S3CredentialsURL is the NSIDC endpoint that exchanges an Earthdata
// session for temporary AWS credentials.
var S3CredentialsURL = "https://data.nsidc.earthdatacloud.nasa.gov/s3credentials"

// S3Region is the AWS region hosting the Earthdata cloud archive.
// Direct S3 access only works from compute running in this region.
const S3Region = "us-west-2"

// ErrWrongRegion is returned when direct S3 access is attempted from
// outside the us-west-2 region, which the archive rejects with
// permission errors.
var ErrWrongRegion = errors.New("earthdata: direct S3 access to ICESat-2 data requires running in AWS region " + S3Region)

// S3Credentials are temporary AWS credentials for the Earthdata
// cloud archive. They expire about an hour after issue.
type S3Credentials struct {
	AccessKeyID     string    `json:"accessKeyId"`
	SecretAccessKey string    `json:"secretAccessKey"`
	SessionToken    string    `json:"sessionToken"`
	Expiration      time.Time `json:"expiration"`
}

// S3Credentials fetches temporary AWS credentials for direct access
// to cloud-hosted granules.
func (s *Session) S3Credentials() (*S3Credentials, error) {
	resp, err := s.Get(S3CredentialsURL)
	if err != nil {
		if IsURSRedirect(err) {
			return nil, fmt.Errorf("earthdata: fetching S3 credentials: login rejected")
		}
		return nil, fmt.Errorf("earthdata: fetching S3 credentials: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("earthdata: fetching S3 credentials: %s", resp.Status)
	}
	var raw struct {
		AccessKeyID     string `json:"accessKeyId"`
		SecretAccessKey string `json:"secretAccessKey"`
		SessionToken    string `json:"sessionToken"`
		Expiration      string `json:"expiration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("earthdata: decoding S3 credentials: %v", err)
	}
	c := &S3Credentials{
		AccessKeyID:     raw.AccessKeyID,
		SecretAccessKey: raw.SecretAccessKey,
		SessionToken:    raw.SessionToken,
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05-07:00", "2006-01-02 15:04:05+00:00"} {
		if t, err := time.Parse(layout, raw.Expiration); err == nil {
			c.Expiration = t
			break
		}
	}
	return c, nil
}

// An S3Provider supplies AWS sessions backed by Earthdata temporary
// credentials, transparently renewing them before the hourly expiry.
type S3Provider struct {
	session *Session

	mx    sync.Mutex
	creds *S3Credentials
}

// NewS3Provider creates an S3Provider drawing credentials from the
// given Earthdata session.
func NewS3Provider(s *Session) *S3Provider {
	return &S3Provider{session: s}
}

// Credentials returns valid temporary credentials, fetching new ones
// if the cached set is within a minute of expiring.
func (p *S3Provider) Credentials() (*S3Credentials, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.creds != nil && time.Until(p.creds.Expiration) > time.Minute {
		return p.creds, nil
	}
	creds, err := p.session.S3Credentials()
	if err != nil {
		return nil, err
	}
	p.creds = creds
	return creds, nil
}

// AWSSession returns an AWS session for the Earthdata cloud archive.
// It returns ErrWrongRegion when not running in us-west-2, because
// the archive buckets reject cross-region access.
func (p *S3Provider) AWSSession() (*session.Session, error) {
	if err := CheckRegion(); err != nil {
		return nil, err
	}
	creds, err := p.Credentials()
	if err != nil {
		return nil, err
	}
	c := &aws.Config{
		Region: aws.String(S3Region),
		Credentials: credentials.NewStaticCredentials(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
	}
	return session.NewSession(c)
}

// regionURL is the EC2 instance metadata endpoint reporting the
// current region. Overridable for testing.
var regionURL = "http://169.254.169.254/latest/meta-data/placement/region"

// CheckRegion verifies that the current process runs in the AWS
// region hosting the Earthdata cloud archive. The region is taken
// from $AWS_REGION or $AWS_DEFAULT_REGION if set, otherwise from the
// EC2 instance metadata service.
func CheckRegion() error {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		client := http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get(regionURL)
		if err != nil {
			return ErrWrongRegion
		}
		defer resp.Body.Close()
		b := make([]byte, 64)
		n, _ := resp.Body.Read(b)
		region = string(b[:n])
	}
	if region != S3Region {
		return ErrWrongRegion
	}
	return nil
}
