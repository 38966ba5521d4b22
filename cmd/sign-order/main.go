// sign-order builds and signs a 0x v4 limit order for manual testing:
// generate (or load) a maker key, sign the order EIP-712 style and print
// the JSON body a maker would POST to the watcher.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"math/rand"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/orderwatch/pkg/zeroex"
)

func main() {
	var (
		keyHex      = flag.String("key", "", "maker private key hex (generates a fresh key when empty)")
		makerToken  = flag.String("maker-token", "", "maker token address")
		takerToken  = flag.String("taker-token", "", "taker token address")
		makerAmount = flag.String("maker-amount", "1000000000000000000", "maker amount (base units)")
		takerAmount = flag.String("taker-amount", "1000000", "taker amount (base units)")
		expirySecs  = flag.Int64("expiry", 3600, "seconds until expiry")
		chainID     = flag.Int64("chain-id", 1337, "EIP-712 chain id")
		exchange    = flag.String("exchange", "", "exchange proxy (verifying contract) address")
	)
	flag.Parse()

	if !common.IsHexAddress(*makerToken) || !common.IsHexAddress(*takerToken) || !common.IsHexAddress(*exchange) {
		fmt.Fprintln(os.Stderr, "need valid -maker-token, -taker-token and -exchange addresses")
		os.Exit(1)
	}

	var signer *zeroex.Signer
	var err error
	if *keyHex == "" {
		fmt.Println("Generating new keypair...")
		signer, err = zeroex.GenerateKey()
		if err == nil {
			fmt.Printf("Address: %s\n", signer.Address().Hex())
			fmt.Printf("Private Key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())
		}
	} else {
		signer, err = zeroex.FromPrivateKeyHex(*keyHex)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "key: %v\n", err)
		os.Exit(1)
	}

	mkAmount, ok := new(big.Int).SetString(*makerAmount, 10)
	if !ok {
		fmt.Fprintln(os.Stderr, "invalid -maker-amount")
		os.Exit(1)
	}
	tkAmount, ok := new(big.Int).SetString(*takerAmount, 10)
	if !ok {
		fmt.Fprintln(os.Stderr, "invalid -taker-amount")
		os.Exit(1)
	}

	order := zeroex.LimitOrder{
		MakerToken:          common.HexToAddress(*makerToken),
		TakerToken:          common.HexToAddress(*takerToken),
		MakerAmount:         mkAmount,
		TakerAmount:         tkAmount,
		TakerTokenFeeAmount: big.NewInt(0),
		Maker:               signer.Address(),
		// Zero taker/sender: anyone may fill
		Expiry:            uint64(time.Now().Add(time.Duration(*expirySecs) * time.Second).Unix()),
		Salt:              big.NewInt(rand.Int63()),
		ChainID:           *chainID,
		VerifyingContract: common.HexToAddress(*exchange),
	}

	hash, err := zeroex.OrderHash(&order)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		os.Exit(1)
	}
	sig, err := signer.SignOrder(&order)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}

	// Sanity check before printing
	recovered, err := zeroex.RecoverOrderSigner(&order, sig)
	if err != nil || recovered != signer.Address() {
		fmt.Fprintf(os.Stderr, "signature verification failed: %v\n", err)
		os.Exit(1)
	}

	signed := []zeroex.SignedLimitOrder{{LimitOrder: order, Signature: sig}}
	body, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Order hash: %s\n\n", hash.Hex())
	fmt.Println("POST this to the watcher:")
	fmt.Println("  POST http://localhost:8008/orders")
	fmt.Println("  Content-Type: application/json")
	fmt.Println(string(body))
}
