/*
Package proc makes one compiled binary behave as two cooperating processes: a client
process running the caller's code, and a server process owning the canvas and serving
drawing requests.

Start must be the very first call in main. When the role marker environment variable
is set, the current process becomes the server: it builds a connection over stdin,
enters the render loop, and never returns. Otherwise Start returns immediately and the
caller proceeds as the client, typically by opening a Session.

A Session spawns the companion server process (the same executable, with the role
marker set and an otherwise empty environment), performs the one-shot handshake over
the child's stdin, and exposes Send/Recv for drawing requests. Teardown is explicit:
Close waits for the server process to exit and propagates a failing exit code, while
Abort kills it immediately. Run wraps both behind a scoped callback so panics take the
fast path automatically.
*/
package proc
