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

// Package earthdata authenticates against NASA Earthdata Login (URS)
// and provides authenticated HTTP sessions and temporary AWS
// credentials for direct access to cloud-hosted ICESat-2 data.
package earthdata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// URSHost is the Earthdata Login host. Redirects to it carry HTTP
// Basic credentials; redirects to any other host do not.
const URSHost = "urs.earthdata.nasa.gov"

// TokenURL is the Earthdata Login endpoint for API tokens.
var TokenURL = "https://" + URSHost + "/api/users/token"

// Environment variables holding Earthdata Login credentials.
const (
	EnvUsername = "EARTHDATA_USERNAME"
	EnvPassword = "EARTHDATA_PASSWORD"
)

// Credentials is an Earthdata Login username/password pair.
type Credentials struct {
	Username, Password string
}

// FindCredentials locates Earthdata Login credentials, trying in
// order: the environment ($EARTHDATA_USERNAME and
// $EARTHDATA_PASSWORD), a .env file in the working directory, and
// the ~/.netrc file.
func FindCredentials() (*Credentials, error) {
	if u, p := os.Getenv(EnvUsername), os.Getenv(EnvPassword); u != "" && p != "" {
		return &Credentials{Username: u, Password: p}, nil
	}
	if env, err := godotenv.Read(); err == nil {
		if u, p := env[EnvUsername], env[EnvPassword]; u != "" && p != "" {
			return &Credentials{Username: u, Password: p}, nil
		}
	}
	home, err := os.UserHomeDir()
	if err == nil {
		if c, err := netrcCredentials(filepath.Join(home, ".netrc"), URSHost); err == nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("earthdata: no Earthdata Login credentials found; set $%s and $%s, add them to a .env file, or add a %s entry to ~/.netrc", EnvUsername, EnvPassword, URSHost)
}

// netrcCredentials extracts the login for machine from a netrc file.
func netrcCredentials(path, machine string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tokens []string
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	c := new(Credentials)
	inMachine := false
	for i := 0; i < len(tokens)-1; i++ {
		switch tokens[i] {
		case "machine":
			inMachine = tokens[i+1] == machine
		case "default":
			inMachine = c.Username == ""
		case "login":
			if inMachine {
				c.Username = tokens[i+1]
			}
		case "password":
			if inMachine {
				c.Password = tokens[i+1]
			}
		}
	}
	if c.Username == "" || c.Password == "" {
		return nil, fmt.Errorf("earthdata: no %s entry in %s", machine, path)
	}
	return c, nil
}

// A Session is an authenticated Earthdata connection: an HTTP client
// that survives the URS OAuth redirect dance, plus an API token.
type Session struct {
	*http.Client
	creds *Credentials

	// Token is the Earthdata Login API token, used as a bearer
	// credential by CMR and the cloud credential endpoints.
	Token string

	// TokenExpiration is when the token stops being valid.
	TokenExpiration time.Time
}

// Login authenticates with Earthdata Login. If creds is nil the
// credentials are located with FindCredentials. The returned session
// holds a cookie jar and a redirect policy that re-attaches Basic
// credentials on redirects back to URS and strips them elsewhere, as
// the NSIDC/URS OAuth flow requires.
func Login(creds *Credentials) (*Session, error) {
	var err error
	if creds == nil {
		creds, err = FindCredentials()
		if err != nil {
			return nil, err
		}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("earthdata: creating cookie jar: %v", err)
	}
	s := &Session{creds: creds}
	s.Client = &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Minute,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 10 {
				return fmt.Errorf("earthdata: stopped after 10 redirects")
			}
			req.Header.Del("Authorization")
			if req.URL.Host == URSHost {
				req.SetBasicAuth(creds.Username, creds.Password)
			}
			return nil
		},
	}
	if err := s.fetchToken(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get issues an authenticated GET request, attaching Basic
// credentials so that services fronted by URS can complete the OAuth
// handshake.
func (s *Session) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.creds.Username, s.creds.Password)
	return s.Do(req)
}

type tokenResponse struct {
	AccessToken    string `json:"access_token"`
	TokenType      string `json:"token_type"`
	ExpirationDate string `json:"expiration_date"`
}

// fetchToken obtains an Earthdata Login API token, creating one if
// the account has none.
func (s *Session) fetchToken() error {
	req, err := http.NewRequest("POST", TokenURL, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.creds.Username, s.creds.Password)
	resp, err := s.Do(req)
	if err != nil {
		return fmt.Errorf("earthdata: requesting token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("earthdata: login failed for user %s: %s", s.creds.Username, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("earthdata: requesting token: %s", resp.Status)
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("earthdata: decoding token response: %v", err)
	}
	s.Token = tok.AccessToken
	if t, err := time.Parse("01/02/2006", tok.ExpirationDate); err == nil {
		s.TokenExpiration = t
	}
	return nil
}

// Username returns the login user name associated with the session.
func (s *Session) Username() string { return s.creds.Username }

// IsURSRedirect reports whether an error from the http client is the
// redirect-loop failure URS produces when credentials are rejected.
func IsURSRedirect(err error) bool {
	return err != nil && strings.Contains(err.Error(), "stopped after 10 redirects")
}
