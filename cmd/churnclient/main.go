package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rushteam/churnkit/client"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/policy"
)

// goldenCustomer 是默认的冒烟画像：新入网、月付、电子支票，高流失风险。
func goldenCustomer() map[string]any {
	return map[string]any{
		"customerid":       "7590-vhveg",
		"gender":           "female",
		"seniorcitizen":    0,
		"partner":          "yes",
		"dependents":       "no",
		"tenure":           1,
		"phoneservice":     "no",
		"multiplelines":    "no_phone_service",
		"internetservice":  "dsl",
		"onlinesecurity":   "no",
		"onlinebackup":     "yes",
		"deviceprotection": "no",
		"techsupport":      "no",
		"streamingtv":      "no",
		"streamingmovies":  "no",
		"contract":         "month-to-month",
		"paperlessbilling": "yes",
		"paymentmethod":    "electronic_check",
		"monthlycharges":   29.85,
		"totalcharges":     29.85,
	}
}

func main() {
	var (
		endpoint = flag.String("endpoint", client.DefaultEndpoint, "评分服务地址")
		file     = flag.String("file", "", "客户画像 JSON 文件（缺省用内置冒烟画像）")
		timeout  = flag.Duration("timeout", 10*time.Second, "请求超时")
	)
	flag.Parse()

	fields := goldenCustomer()
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "churnclient: read profile: %v\n", err)
			os.Exit(1)
		}
		fields = nil
		if err := json.Unmarshal(data, &fields); err != nil {
			fmt.Fprintf(os.Stderr, "churnclient: parse profile: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.NewClient(*endpoint, client.WithTimeout(*timeout))
	pred, err := c.Predict(ctx, fields)
	if err != nil {
		if de := core.GetDomainError(err); de != nil {
			fmt.Fprintf(os.Stderr, "churnclient: [%s/%s] %s\n", de.Module, de.Code, de.Message)
			for _, fe := range de.Fields {
				fmt.Fprintf(os.Stderr, "  - %s: %s\n", fe.Field, fe.Message)
			}
		} else {
			fmt.Fprintf(os.Stderr, "churnclient: %v\n", err)
		}
		os.Exit(1)
	}

	decision := "keep"
	if pred.Churn {
		decision = "churn"
	}
	tier := policy.DefaultLadder().TierFor(pred.Probability)

	fmt.Printf("churn_probability: %.6f\n", pred.Probability)
	fmt.Printf("decision:          %s\n", decision)
	fmt.Printf("retention_tier:    %s\n", tier)
}
