// Cloud retrieval tool backed by an AWS Bedrock Knowledge Base.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/richinex/scriba/model"
)

// DefaultAWSMaxResults caps the passages retrieved per cloud query.
const DefaultAWSMaxResults = 5

// KnowledgeBaseRetriever is the subset of the Bedrock agent runtime client
// the tool uses. Satisfied by *bedrockagentruntime.Client.
type KnowledgeBaseRetriever interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// AWSSearchTool retrieves passages from a managed cloud knowledge base.
type AWSSearchTool struct {
	BaseTool
	retriever       KnowledgeBaseRetriever
	knowledgeBaseID string
	maxResults      int
}

// NewAWSSearchTool creates a cloud retrieval tool. A nil retriever or empty
// knowledge base ID makes every invocation fail with ToolUnavailableError.
func NewAWSSearchTool(retriever KnowledgeBaseRetriever, knowledgeBaseID string, maxResults int) *AWSSearchTool {
	if maxResults <= 0 {
		maxResults = DefaultAWSMaxResults
	}
	return &AWSSearchTool{
		retriever:       retriever,
		knowledgeBaseID: knowledgeBaseID,
		maxResults:      maxResults,
	}
}

// NewBedrockRetriever builds the real Bedrock agent runtime client from the
// ambient AWS credential chain.
func NewBedrockRetriever(ctx context.Context, region string) (KnowledgeBaseRetriever, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return bedrockagentruntime.NewFromConfig(cfg), nil
}

// Metadata returns the tool metadata.
func (t *AWSSearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        string(model.ToolAWS),
		Description: "Search the cloud knowledge base for passages relevant to a query",
		Category:    CategorySearch,
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "Search query", Required: true},
		},
	}
}

type awsSearchArgs struct {
	Query string `json:"query"`
}

// Execute retrieves from the knowledge base. Any backend failure becomes a
// ToolUnavailableError so the session can continue with other tools.
func (t *AWSSearchTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var a awsSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Query) == "" {
		return FailureResultf("query cannot be empty"), nil
	}

	failure := func(err error) Result {
		return FailureResult(
			&model.ToolUnavailableError{Tool: string(model.ToolAWS), Err: err},
			sourceRef(model.ToolAWS, a.Query, 0),
		)
	}

	if t.retriever == nil || strings.TrimSpace(t.knowledgeBaseID) == "" {
		return failure(fmt.Errorf("cloud retrieval is not configured")), nil
	}

	out, err := t.retriever.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(t.knowledgeBaseID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(a.Query)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(t.maxResults)),
			},
		},
	})
	if err != nil {
		return failure(err), nil
	}

	var sb strings.Builder
	count := 0
	for _, r := range out.RetrievalResults {
		if r.Content == nil || r.Content.Text == nil {
			continue
		}
		count++
		score := 0.0
		if r.Score != nil {
			score = *r.Score
		}
		fmt.Fprintf(&sb, "%d. [score: %.3f]\n%s\n\n", count, score, *r.Content.Text)
	}

	output := "No relevant passages found in the cloud knowledge base."
	if count > 0 {
		output = fmt.Sprintf("Found %d relevant passages:\n\n%s", count, sb.String())
	}

	return Result{
		Output:  output,
		Sources: []model.SourceInfo{sourceRef(model.ToolAWS, a.Query, count)},
	}, nil
}
