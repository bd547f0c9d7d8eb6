package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"bidvault/cmd/internal/passphrase"
	"bidvault/crypto"
)

const (
	tokenEnv      = "BIDVAULT_RPC_TOKEN"
	passphraseEnv = "BIDVAULT_WALLET_PASS"
)

func main() {
	endpoint := flag.String("rpc", "http://127.0.0.1:8546", "JSON-RPC endpoint of bidvaultd")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	c := newClient(*endpoint, strings.TrimSpace(os.Getenv(tokenEnv)))

	var err error
	switch args[0] {
	case "keygen":
		err = cmdKeygen(args[1:])
	case "address":
		err = cmdAddress(args[1:])
	case "balance":
		err = cmdBalance(c, args[1:])
	case "faucet":
		err = cmdFaucet(c, args[1:])
	case "transfer":
		err = cmdTransfer(c, args[1:])
	case "escrow":
		err = cmdEscrow(c, args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: bidvault-cli [-rpc URL] <command>

commands:
  keygen <keystore-path>                      generate a wallet key
  address <keystore-path>                     print the wallet address
  balance <address>                           query a ledger balance
  faucet <address> <amount>                   mint development funds
  transfer <from> <to> <amount>               move ledger funds
  escrow init <owner> [initial-deposit]       create an escrow
  escrow deposit <owner> <caller> <amount>    add funds
  escrow bid <owner> <bidder> <amount>        lock funds against a bid
  escrow cancel <owner> <bid-id> <caller>     cancel a bid (refund)
  escrow resolve <owner> <bid-id> <caller>    finalize a winning bid
  escrow withdraw <owner> <caller> <amount>   withdraw available funds
  escrow get <owner>                          show escrow totals
  escrow bid-info <bid-id>                    show a bid record

BIDVAULT_RPC_TOKEN supplies the bearer token for mutating commands.
BIDVAULT_WALLET_PASS supplies the keystore passphrase for keygen/address;
when unset, the CLI prompts on the terminal.`)
}

func parseAmount(raw string) (uint64, error) {
	amt, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amt, nil
}

func cmdKeygen(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("keygen requires a keystore path")
	}
	secret, err := passphrase.NewSource(passphraseEnv).Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(args[0], key, secret); err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}

func cmdAddress(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("address requires a keystore path")
	}
	secret, err := passphrase.NewSource(passphraseEnv).Get()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(args[0], secret)
	if err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}

func cmdBalance(c *client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("balance requires an address")
	}
	var result json.RawMessage
	if err := c.call("ledger_balance", map[string]string{"address": args[0]}, &result); err != nil {
		return err
	}
	return printJSON(result)
}

func cmdFaucet(c *client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("faucet requires an address and an amount")
	}
	amt, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	var result json.RawMessage
	if err := c.call("ledger_faucet", map[string]interface{}{"to": args[0], "amount": amt}, &result); err != nil {
		return err
	}
	return printJSON(result)
}

func cmdTransfer(c *client, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("transfer requires from, to and amount")
	}
	amt, err := parseAmount(args[2])
	if err != nil {
		return err
	}
	params := map[string]interface{}{"from": args[0], "to": args[1], "amount": amt}
	var result json.RawMessage
	if err := c.call("ledger_transfer", params, &result); err != nil {
		return err
	}
	return printJSON(result)
}

func cmdEscrow(c *client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("escrow requires a subcommand")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "init":
		if len(rest) < 1 || len(rest) > 2 {
			return fmt.Errorf("escrow init requires an owner and an optional deposit")
		}
		var deposit uint64
		if len(rest) == 2 {
			var err error
			if deposit, err = parseAmount(rest[1]); err != nil {
				return err
			}
		}
		return callAndPrint(c, "escrow_init", map[string]interface{}{"owner": rest[0], "initialDeposit": deposit})
	case "deposit", "withdraw":
		if len(rest) != 3 {
			return fmt.Errorf("escrow %s requires owner, caller and amount", sub)
		}
		amt, err := parseAmount(rest[2])
		if err != nil {
			return err
		}
		return callAndPrint(c, "escrow_"+sub, map[string]interface{}{"owner": rest[0], "caller": rest[1], "amount": amt})
	case "bid":
		if len(rest) != 3 {
			return fmt.Errorf("escrow bid requires owner, bidder and amount")
		}
		amt, err := parseAmount(rest[2])
		if err != nil {
			return err
		}
		return callAndPrint(c, "escrow_placeBid", map[string]interface{}{"owner": rest[0], "bidder": rest[1], "amount": amt})
	case "cancel", "resolve":
		if len(rest) != 3 {
			return fmt.Errorf("escrow %s requires owner, bid-id and caller", sub)
		}
		method := "escrow_cancelBid"
		if sub == "resolve" {
			method = "escrow_resolveBid"
		}
		return callAndPrint(c, method, map[string]interface{}{"owner": rest[0], "bidId": rest[1], "caller": rest[2]})
	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("escrow get requires an owner")
		}
		return callAndPrint(c, "escrow_get", map[string]string{"owner": rest[0]})
	case "bid-info":
		if len(rest) != 1 {
			return fmt.Errorf("escrow bid-info requires a bid id")
		}
		return callAndPrint(c, "escrow_getBid", map[string]string{"bidId": rest[0]})
	default:
		return fmt.Errorf("unknown escrow subcommand %q", sub)
	}
}

func callAndPrint(c *client, method string, params interface{}) error {
	var result json.RawMessage
	if err := c.call(method, params, &result); err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(raw json.RawMessage) error {
	var pretty map[string]interface{}
	if err := json.Unmarshal(raw, &pretty); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
