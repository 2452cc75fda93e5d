/*
Package ipc implements the bootstrap handshake and the typed bidirectional connection
between a canvas client process and its spawned server process. It uses WebSockets for
bidi messaging so the handshake only requires a plain HTTP listener on loopback.

The handshake proceeds as follows:

1. The client picks an ephemeral loopback port and generates a one-shot token. The pair forms the handshake name, "host:port/token".
2. The client delivers the name to the server process through a caller-supplied exchange function (in practice, a write to the server's stdin).
3. The server reads the name, dials ws://host:port/handshake/token, and the client's one-shot listener upgrades the connection.
4. Both sides then exchange request and response envelopes as JSON messages. The schema is described in types.go.

The listener accepts exactly one connection: the token is use-once, and the listener is
torn down as soon as the handshake completes. If the server process never dials back,
Connect fails when its context is done.

Send and Recv fail once the peer process is gone; callers should treat that as the end
of the session rather than a fault.
*/
package ipc
