/*
Package cunit is the compilation unit loader of a managed VM.

A compilation unit is located by its identifier, read fully into memory, materialized into an
anonymous constructible [Handle], instantiated, initialized and finally run. Each identifier
is activated at most once per [Runtime].

# License

Source codes are under Apache License Version 2.0.

# Steps

 1. Cache check against the [LoadedSet] owned by the [Runtime].
 2. Resolve the identifier as a path. The bootstrap unit falls back to the configured search path.
 3. Read the raw artifact.
 4. Materialize the artifact with a [Materializer], ignoring any name it declares.
 5. Construct the unit, call [CompilationUnit.InitializeCompilationUnit] then [CompilationUnit.RunLoadIfAvailable].
 6. Commit the original identifier into the [LoadedSet].

# Artifact formats

  - Envelope: a canonical CBOR document naming a unit kind registered in a [Registry].
  - Object: a serialized [goloader] linker, linked into a fresh code module on every load by the
    materializer of package object. Runtimes built without it reject object artifacts with [ErrNoObjects].

# Errors

A [*ControlTransfer] raised by a unit passes through [Loader.Load] untouched.
Any other failure becomes a [*FatalError] and the identifier stays unloaded.

# Notes

 1. Object artifacts require a go sdk prepared for [goloader], see the prepare command of cunit.
 2. Code modules of object artifacts are never unloaded, units may still reference their code.

[goloader]: https://github.com/pkujhd/goloader
*/
package cunit
