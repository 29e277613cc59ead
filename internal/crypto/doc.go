// Package crypto protects message, file and audio payloads with AES-CBC.
//
// A Codec is stateless given its key: every Encrypt call draws a fresh
// 16-byte IV and returns IV ‖ ciphertext. Text transports base64 the blob,
// binary transports carry it raw.
//
// The key is shared by every client and by the relay, so the relay can read
// what it forwards. This protects traffic against third parties only; it is
// not end-to-end secrecy from the relay operator.
package crypto
