package gql

// schema keeps the snake_case field names of the Apollo endpoint so existing
// front ends can send the same mutation.
const schema = `
	schema {
		query: Query
		mutation: Mutation
	}

	type Message {
		role: String!
		content: String!
	}

	type ChatChoice {
		index: Int!
		message: Message!
		finish_reason: String!
	}

	type ChatUsage {
		prompt_tokens: Int!
		completion_tokens: Int!
		total_tokens: Int!
	}

	type ChatCompletion {
		id: String!
		object: String!
		created: Int!
		model: String!
		choices: [ChatChoice!]!
		usage: ChatUsage!
	}

	type Model {
		id: String!
		name: String!
		provider: String!
		description: String!
		maxTokens: Int!
	}

	input MessageInput {
		role: String!
		content: String!
	}

	input ChatCompletionInput {
		messages: [MessageInput!]!
		max_tokens: Int = 1000
		temperature: Float = 0.7
		system_prompt: String = "You are a helpful assistant."
		model: String = "llama-3-8b-instruct"
		provider: String = "cloudflare"
		session_id: String
	}

	type Query {
		hello: String
		models: [Model!]!
	}

	type Mutation {
		createChatCompletion(input: ChatCompletionInput!): ChatCompletion!
	}
`
