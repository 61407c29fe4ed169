package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via LOYALTY_RPC_URL
var rpcAuthToken = os.Getenv("LOYALTY_RPC_TOKEN")

func defaultRPCEndpoint() string {
	if url := os.Getenv("LOYALTY_RPC_URL"); url != "" {
		return url
	}
	return "http://localhost:8645"
}

func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "mint":
		if len(args) < 3 {
			fmt.Println("Error: Please provide the caller and recipient addresses.")
			printUsage()
			return
		}
		call("loyalty_mint", map[string]interface{}{"caller": args[1], "recipient": args[2]})
	case "burn":
		if len(args) < 3 {
			fmt.Println("Error: Please provide the caller address and a token id.")
			printUsage()
			return
		}
		id, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid token id.")
			return
		}
		call("loyalty_burn", map[string]interface{}{"caller": args[1], "tokenId": id})
	case "set-transferability":
		if len(args) < 3 {
			fmt.Println("Error: Please provide the caller address and true/false.")
			printUsage()
			return
		}
		transferable, err := strconv.ParseBool(args[2])
		if err != nil {
			fmt.Println("Error: Invalid transferability flag.")
			return
		}
		call("loyalty_setTransferability", map[string]interface{}{"caller": args[1], "transferable": transferable})
	case "transferability":
		call("loyalty_getTransferability", nil)
	case "is-burnt":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a token id.")
			printUsage()
			return
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid token id.")
			return
		}
		call("loyalty_isBurnt", map[string]interface{}{"tokenId": id})
	case "distribute":
		if len(args) < 2 {
			fmt.Println("Error: Please provide the pool amount.")
			printUsage()
			return
		}
		call("loyalty_distribute", map[string]interface{}{"pool": args[1]})
	case "balance":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a holder address.")
			printUsage()
			return
		}
		call("loyalty_getRewardsBalance", map[string]interface{}{"holder": args[1]})
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println(`Usage: loyalty-cli <command> [arguments]

Commands:
  mint <caller> <recipient>              Mint a new loyalty token for the recipient
  burn <caller> <token-id>               Burn a token owned by (or approved to) the caller
  set-transferability <caller> <bool>    Toggle the global transfer flag
  transferability                        Show the global transfer flag
  is-burnt <token-id>                    Show the burn status of a token id
  distribute <pool>                      Distribute a reward pool across live holders
  balance <holder>                       Show a holder's accumulated rewards

Environment:
  LOYALTY_RPC_URL     RPC endpoint (default http://localhost:8645)
  LOYALTY_RPC_TOKEN   Bearer token for mutating commands`)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	} `json:"error"`
}

func call(method string, params map[string]interface{}) {
	reqParams := []interface{}{}
	if params != nil {
		reqParams = append(reqParams, params)
	}
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: reqParams, ID: 1})
	if err != nil {
		fmt.Printf("Error: failed to encode request: %v\n", err)
		os.Exit(1)
	}

	httpReq, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Error: failed to build request: %v\n", err)
		os.Exit(1)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if rpcAuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+rpcAuthToken)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		fmt.Printf("Error: RPC call failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		fmt.Printf("Error: invalid RPC response: %v\n", err)
		os.Exit(1)
	}
	if decoded.Error != nil {
		fmt.Printf("Error (%d): %s\n", decoded.Error.Code, decoded.Error.Message)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, decoded.Result, "", "  "); err != nil {
		fmt.Println(string(decoded.Result))
		return
	}
	fmt.Println(pretty.String())
}
