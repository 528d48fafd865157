// Command rk is a CLI client for the ragkeeper service.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "ragkeeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ragkeeper")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveTokens(tf tokenFile) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(tokenPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadTokens() (tokenFile, error) {
	var tf tokenFile
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return tf, err
	}
	if err := json.Unmarshal(b, &tf); err != nil {
		return tf, err
	}
	if tf.AccessToken == "" {
		return tf, errors.New("no token (login required)")
	}
	return tf, nil
}

func clearTokens() error {
	err := os.Remove(tokenPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ---- http client ----

type client struct {
	base string
	hc   *http.Client
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

type authResponse struct {
	AccessToken      string   `json:"accessToken"`
	RefreshToken     string   `json:"refreshToken"`
	TokenType        string   `json:"tokenType"`
	ExpiresInSeconds int64    `json:"expiresInSeconds"`
	Username         string   `json:"username"`
	Role             string   `json:"role"`
	OrgTags          []string `json:"orgTags"`
}

// do sends one JSON request. A non-2xx status decodes into apiError.
func (c *client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var ae apiError
		if err := json.NewDecoder(resp.Body).Decode(&ae); err != nil || ae.Code == "" {
			return fmt.Errorf("http %d", resp.StatusCode)
		}
		return &ae
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// bearer returns a usable access token, rotating the pair first when the
// stored one has run out.
func (c *client) bearer(ctx context.Context) (string, error) {
	tf, err := loadTokens()
	if err != nil {
		return "", err
	}
	if time.Now().Before(tf.ExpiresAt) {
		return tf.AccessToken, nil
	}
	if tf.RefreshToken == "" {
		return "", errors.New("token expired (login required)")
	}
	var resp authResponse
	err = c.do(ctx, http.MethodPost, "/api/auth/refresh", "",
		map[string]string{"refreshToken": tf.RefreshToken}, &resp)
	if err != nil {
		return "", fmt.Errorf("refresh: %w (login required)", err)
	}
	if err := saveTokens(tokenFileFrom(resp)); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func tokenFileFrom(resp authResponse) tokenFile {
	return tokenFile{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresInSeconds) * time.Second),
	}
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `rk CLI
Usage:
  rk -addr URL <cmd> [args]

Commands:
  version
  register   -u <username> -e <email> -p <password> [-tags a,b]
  login      -u <username> -p <password>               (saves tokens)
  refresh                                          (rotates saved pair)
  logout                                       (revokes all, clears file)
  whoami
  convs                                            (list conversations)
  new        [-title t]
  rename     -id <uuid> -title <t>
  rm         -id <uuid>
  msgs       -id <uuid>
  say        -id <uuid> -text <content>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the HTTP API.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := &client{base: *addr, hc: &http.Client{Timeout: 30 * time.Second}}

	switch cmd {

	case "version":
		fmt.Printf("rk %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		u := fs.String("u", "", "username")
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		tags := fs.String("tags", "", "comma-separated org tags")
		_ = fs.Parse(flag.Args()[1:])
		if *u == "" || *e == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u, -e and -p")
			os.Exit(1)
		}
		var resp authResponse
		err := c.do(ctx, http.MethodPost, "/api/auth/register", "",
			map[string]string{"username": *u, "email": *e, "password": *p, "orgTags": *tags}, &resp)
		if err != nil {
			fail(err)
		}
		if err := saveTokens(tokenFileFrom(resp)); err != nil {
			fail(err)
		}
		fmt.Println("registered as", resp.Username)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}
		var resp authResponse
		err := c.do(ctx, http.MethodPost, "/api/auth/login", "",
			map[string]string{"username": *u, "password": *p}, &resp)
		if err != nil {
			fail(err)
		}
		if err := saveTokens(tokenFileFrom(resp)); err != nil {
			fail(err)
		}
		fmt.Println("logged in as", resp.Username)

	case "refresh":
		tf, err := loadTokens()
		if err != nil {
			fail(err)
		}
		var resp authResponse
		err = c.do(ctx, http.MethodPost, "/api/auth/refresh", "",
			map[string]string{"refreshToken": tf.RefreshToken}, &resp)
		if err != nil {
			fail(err)
		}
		if err := saveTokens(tokenFileFrom(resp)); err != nil {
			fail(err)
		}
		fmt.Println("rotated; access token valid until", time.Now().Add(time.Duration(resp.ExpiresInSeconds)*time.Second).Format(time.RFC3339))

	case "logout":
		tok, err := c.bearer(ctx)
		if err != nil {
			fail(err)
		}
		if err := c.do(ctx, http.MethodPost, "/api/auth/logout", tok, nil, nil); err != nil {
			fail(err)
		}
		if err := clearTokens(); err != nil {
			fail(err)
		}
		fmt.Println("logged out")

	case "whoami":
		tok, err := c.bearer(ctx)
		if err != nil {
			fail(err)
		}
		var me map[string]any
		if err := c.do(ctx, http.MethodGet, "/api/auth/me", tok, nil, &me); err != nil {
			fail(err)
		}
		printJSON(me)

	case "convs":
		tok, err := c.bearer(ctx)
		if err != nil {
			fail(err)
		}
		var list []map[string]any
		if err := c.do(ctx, http.MethodGet, "/api/conversations/", tok, nil, &list); err != nil {
			fail(err)
		}
		printJSON(list)

	case "new":
		fs := flag.NewFlagSet("new", flag.ExitOnError)
		title := fs.String("title", "", "conversation title")
		_ = fs.Parse(flag.Args()[1:])
		tok, err := c.bearer(ctx)
		if err != nil {
			fail(err)
		}
		var created map[string]any
		err = c.do(ctx, http.MethodPost, "/api/conversations/", tok,
			map[string]string{"title": *title}, &created)
		if err != nil {
			fail(err)
		}
		printJSON(created)

	case "rename":
		fs := flag.NewFlagSet("rename", flag.ExitOnError)
		id := fs.String("id", "", "conversation id")
		title := fs.String("title", "", "new title")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" || *title == "" {
			fmt.Fprintln(os.Stderr, "need -id and -title")
			os.Exit(1)
		}
		tok, err := c.bearer(ctx)
		if err != nil {
			fail(err)
		}
		var renamed map[string]any
		err = c.do(ctx, http.MethodPatch, "/api/conversations/"+*id, tok,
			map[string]string{"title": *title}, &renamed)
		if err != nil {
			fail(err)
		}
		printJSON(renamed)

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		id := fs.String("id", "", "conversation id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		tok, err := c.bearer(ctx)
		if err != nil {
			fail(err)
		}
		if err := c.do(ctx, http.MethodDelete, "/api/conversations/"+*id, tok, nil, nil); err != nil {
			fail(err)
		}
		fmt.Println("deleted")

	case "msgs":
		fs := flag.NewFlagSet("msgs", flag.ExitOnError)
		id := fs.String("id", "", "conversation id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		tok, err := c.bearer(ctx)
		if err != nil {
			fail(err)
		}
		var list []map[string]any
		if err := c.do(ctx, http.MethodGet, "/api/conversations/"+*id+"/messages", tok, nil, &list); err != nil {
			fail(err)
		}
		printJSON(list)

	case "say":
		fs := flag.NewFlagSet("say", flag.ExitOnError)
		id := fs.String("id", "", "conversation id")
		text := fs.String("text", "", "message content")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" || *text == "" {
			fmt.Fprintln(os.Stderr, "need -id and -text")
			os.Exit(1)
		}
		tok, err := c.bearer(ctx)
		if err != nil {
			fail(err)
		}
		var msg map[string]any
		err = c.do(ctx, http.MethodPost, "/api/conversations/"+*id+"/messages", tok,
			map[string]string{"role": "user", "content": *text}, &msg)
		if err != nil {
			fail(err)
		}
		printJSON(msg)

	default:
		usage()
	}
}
