// Package manager owns the lifecycle of the local model: validating the
// cached GGUF asset, downloading it when missing, initializing a runtime
// handle, admitting generation requests one at a time, and releasing native
// resources. It is split into small files by concern:
//
//   - manager.go: Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults.
//   - asset.go: the model asset descriptor and its defaults.
//   - types.go: State and Snapshot.
//   - errors.go: error types and IsX helpers.
//   - download.go: streaming fetch with throttled progress.
//   - ensure.go: EnsureReady and Warmup.
//   - release.go: Release and ClearCache.
//   - admission.go: single in-flight slot plus bounded queue.
//   - runtime.go: the Runtime and Handle interfaces.
//   - metrics.go: Prometheus collectors.
//
// Runtimes:
//
//   - In-process llama.cpp via go-llama.cpp, enabled with `-tags=llama`
//     (runtime_llama.go, llama_cgo.go). Without the tag runtime_llama_stub.go
//     returns DependencyUnavailable so default builds stay CGO-free.
//   - Subprocess llama-server (runtime_subprocess.go), which needs only the
//     llama-server binary on PATH and speaks the OpenAI streaming API.
package manager
