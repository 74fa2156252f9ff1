/*
Package dispatch performs single HTTP calls with timeout and cooperative
cancellation.

# Overview

The dispatch Service is the network boundary of the engine:
  - One shared http.Client; per-call deadlines via context
  - Transaction registry keyed by caller-chosen ids for cancellation
  - Response normalization (status, flattened headers, typed body)
  - Wall-clock timing on every path, including failures

# Error Model

HTTP error statuses are not errors. Any response the server sent comes back
as a DispatchResult, whatever its status. The *Error type covers only:
  - transport: DNS/connection faults
  - timeout: the per-call deadline elapsed
  - cancelled: Cancel(transactionID) or parent context cancellation

Timeout and cancellation abort the same underlying call; the Kind field is
what distinguishes them. ResultFromError converts any of these into a
status-0 DispatchResult for result-shaped surfacing.

# Cancellation

	svc := dispatch.NewService(nil)
	go svc.Send(ctx, url, dispatch.SendOptions{TransactionID: "tx-1", ...})
	svc.Cancel("tx-1") // aborts the call; no-op after completion

The registry is the only shared mutable state in the engine. Entries are
removed exactly once, on natural completion or abort.

# Response Body Typing

Bodies are typed from the response Content-Type: application/json is parsed
(falling back to text when unparsable), text/* stays a string, anything else
is base64-encoded so it can cross a serialization boundary.
*/
package dispatch
