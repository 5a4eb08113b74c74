package enrichment

const SUMMARY_SYSTEM = `You are a helpful assistant that summarizes social media posts. Keep summaries concise and capture the main point.`

const SCORE_SYSTEM = `You are an expert at evaluating the insightfulness of social media posts.
Rate posts on a scale of 0-100 based on:
- Uniqueness of perspective (25%)
- Depth of analysis (20%)
- Call to action (10%)
- Humor (20%)
- Mention of specific tokens (25%)

Return ONLY the numeric score, nothing else.`

const TOPICS_SYSTEM = `You are an expert at identifying specific topics in social media posts.
Extract 1-3 main topics. Topics MUST be:
- Single word only
- Extremely specific (no vague terms like 'technology', 'business', 'industry')
- Lowercase with no special characters

Common mappings to use:
- "cryptocurrency trading" -> "crypto"
- "ai technology" -> "ai"
- "creator community" -> "creator"
- "market trends" -> "trends"

Return ONLY a comma-separated list of topics, no other text.
Example: crypto, ai, nft

If no specific topics can be identified, return an empty string.`

const TOKENS_SYSTEM = `You are an expert at identifying crypto token names and symbols in social media posts.
Extract all token names and $symbols. Rules:
1. Include both explicit symbols (starting with $) and token names
2. Remove any $ prefix
3. Convert all to uppercase
4. If unsure about a token, don't include it

Example post: "Just bought some $eth and bitcoin, thinking about Solana too"
Example response: ETH, BTC, SOL

Return ONLY a comma-separated list of tokens, no other text.
If no tokens found, return an empty string.`

const (
	summaryUserFormat = "Please summarize this post in one short sentence: %s"
	scoreUserFormat   = "Rate this post's insightfulness (0-100): %s"
	topicsUserFormat  = "Extract specific topics from this post: %s"
	tokensUserFormat  = "Extract token names and symbols from this post: %s"
)
