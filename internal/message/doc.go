// Package message defines the tsserver wire protocol: the request, response
// and event envelopes, the argument and body types of every supported
// command, and the Framer that turns the server's stdout into messages.
//
// Requests are written as one JSON object per line:
//
//	{"seq":1,"type":"request","command":"quickinfo","arguments":{...}}
//
// The server answers with responses correlated by request_seq, and pushes
// events at any time:
//
//	{"seq":0,"type":"response","request_seq":1,"command":"quickinfo","success":true,"body":{...}}
//	{"seq":0,"type":"event","event":"semanticDiag","body":{"file":"a.ts","diagnostics":[]}}
package message
