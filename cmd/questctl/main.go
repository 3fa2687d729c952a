package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"questchain/cmd/internal/passphrase"
	"questchain/crypto"
	"questchain/native/puzzle"
	"questchain/rpc"
	"questchain/storage/signlog"
)

const (
	keystorePassEnv = "QUESTCHAIN_KEYSTORE_PASSPHRASE"
	apiURLEnv       = "QUESTCHAIN_API"
	apiTokenEnv     = "QUESTCHAIN_API_TOKEN"
	defaultAPIURL   = "http://localhost:8080"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: questctl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  keygen      -keystore <path>                 Generate a key into an encrypted keystore")
	fmt.Fprintln(w, "  address     -keystore <path>                 Print the address of a keystore")
	fmt.Fprintln(w, "  sign-bridge -keystore <path> [-message file] [-journal file]")
	fmt.Fprintln(w, "                                               Sign a bridge message JSON (stdin by default)")
	fmt.Fprintln(w, "  balance     [-api url] <address>             Query a reward token balance")
	fmt.Fprintln(w, "  export-events -dsn <dsn> -out <file>         Export the event archive as parquet")
	fmt.Fprintln(w, "  token       -subject <name> [-scopes list]   Issue a query API bearer token")
	fmt.Fprintln(w, "  puzzle-hash <answer>                         Print the solution hash of a typed answer")
	fmt.Fprintln(w, "  health      [-addr host:port]                Check questd over the gRPC health protocol")
	fmt.Fprintf(w, "\nThe keystore passphrase is read from %s or prompted for.\n", keystorePassEnv)
	fmt.Fprintf(w, "balance sends %s as a bearer token when set; token signs with %s.\n", apiTokenEnv, jwtSecretEnv)
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	passSource := passphrase.NewSource(keystorePassEnv, "keystore")
	switch args[0] {
	case "keygen":
		return keygen(args[1:], passSource.Get, stdout)
	case "address":
		return address(args[1:], passSource.Get, stdout)
	case "sign-bridge":
		return signBridge(args[1:], passSource.Get, stdin, stdout)
	case "balance":
		return balance(args[1:], stdout)
	case "export-events":
		return exportEvents(args[1:], stdout)
	case "token":
		return issueToken(args[1:], stdout)
	case "puzzle-hash":
		return puzzleHash(args[1:], stdout)
	case "health":
		return healthCheck(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs, fs.String("keystore", "", "path to the keystore file")
}

func keygen(args []string, pass func() (string, error), stdout io.Writer) error {
	fs, path := newFlagSet("keygen")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*path) == "" {
		return fmt.Errorf("keygen: -keystore is required")
	}
	if _, err := os.Stat(*path); err == nil {
		return fmt.Errorf("keygen: %s already exists", *path)
	}
	secret, err := pass()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*path, key, secret); err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	fmt.Fprintln(stdout, key.Address().String())
	return nil
}

func loadKey(name, path string, pass func() (string, error)) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s: -keystore is required", name)
	}
	secret, err := pass()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return key, nil
}

func address(args []string, pass func() (string, error), stdout io.Writer) error {
	fs, path := newFlagSet("address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := loadKey("address", *path, pass)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, key.Address().String())
	return nil
}

func signBridge(args []string, pass func() (string, error), stdin io.Reader, stdout io.Writer) error {
	fs, path := newFlagSet("sign-bridge")
	file := fs.String("message", "", "bridge message JSON file")
	journal := fs.String("journal", "", "signing journal; refuses to sign a known message id over a different payload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := loadKey("sign-bridge", *path, pass)
	if err != nil {
		return err
	}
	source := stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("sign-bridge: %w", err)
		}
		defer f.Close()
		source = f
	}
	var body rpc.BridgeMessageResponse
	if err := json.NewDecoder(source).Decode(&body); err != nil {
		return fmt.Errorf("sign-bridge: decode message: %w", err)
	}
	msg, err := body.Message()
	if err != nil {
		return fmt.Errorf("sign-bridge: %w", err)
	}
	digest := msg.SigningHash()
	validator := key.Address().String()
	if *journal != "" {
		log, err := signlog.Open(*journal)
		if err != nil {
			return fmt.Errorf("sign-bridge: %w", err)
		}
		defer log.Close()
		var hash [32]byte
		copy(hash[:], digest)
		if _, err := log.Record(msg.ID, hash, validator, time.Now()); err != nil {
			return fmt.Errorf("sign-bridge: %w", err)
		}
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return fmt.Errorf("sign-bridge: %w", err)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rpc.SignatureResponse{
		MessageID: "0x" + hex.EncodeToString(msg.ID[:]),
		Validator: validator,
		Signature: "0x" + hex.EncodeToString(sig),
	})
}

func puzzleHash(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("puzzle-hash: expected an answer: %w", errUsage)
	}
	hash := puzzle.AnswerHash(strings.Join(args, " "))
	fmt.Fprintln(stdout, "0x"+hex.EncodeToString(hash[:]))
	return nil
}

func balance(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	defaultAPI := defaultAPIURL
	if env := strings.TrimSpace(os.Getenv(apiURLEnv)); env != "" {
		defaultAPI = env
	}
	api := fs.String("api", defaultAPI, "query API base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("balance: expected one address: %w", errUsage)
	}
	addr, err := crypto.ParseAddress(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	endpoint, err := url.JoinPath(*api, "v1", "accounts", crypto.FormatAddress(addr), "balance")
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	if token := strings.TrimSpace(os.Getenv(apiTokenEnv)); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("balance: %s: %s", resp.Status, apiErr.Error)
	}
	var out rpc.BalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("balance: decode: %w", err)
	}
	fmt.Fprintf(stdout, "%s %s\n", out.Address, out.Balance)
	return nil
}
