// Package helpers holds the fixed catalog of runtime support
// functions the generated C program may need: allocation wrappers,
// string utilities, the setjmp-based try/catch mechanism, hashing for
// Map keys, thread/mutex wrappers, and the ARC cycle collector.
//
// Every helper is emitted conditionally — internal/optimize drops any
// helper (and, transitively, any category) nothing in the final IR
// references — so this package is free to register everything the
// language could possibly need without inflating small programs.
package helpers

import "github.com/btrc-lang/btrc/internal/ir"

// Category names, exported so internal/gen can reference them instead
// of repeating string literals.
const (
	CatAlloc      = "alloc"
	CatString     = "string"
	CatTryCatch   = "trycatch"
	CatHash       = "hash"
	CatThread     = "thread"
	CatMutex      = "mutex"
	CatCycle      = "cycle"
	CatDestroyed  = "destroyed"
	CatGPU        = "gpu"
	CatCollection = "collection"
)

// All returns every runtime helper declaration known to the compiler,
// in a stable order (category, then declaration order within it).
// internal/gen registers this full set on every IR module;
// internal/optimize decides what survives to the emitted C file.
func All() []*ir.HelperDecl {
	var out []*ir.HelperDecl
	out = append(out, allocHelpers()...)
	out = append(out, stringHelpers()...)
	out = append(out, hashHelpers()...)
	out = append(out, destroyedHelpers()...)
	out = append(out, cycleHelpers()...)
	out = append(out, tryCatchHelpers()...)
	out = append(out, threadHelpers()...)
	out = append(out, mutexHelpers()...)
	out = append(out, gpuHelpers()...)
	return out
}

func allocHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatAlloc, Name: "__btrc_alloc",
			CSource: `static void *__btrc_alloc(size_t size) {
    void *p = calloc(1, size);
    if (!p) { fprintf(stderr, "btrc: out of memory\n"); exit(1); }
    return p;
}`,
		},
		{
			Category: CatAlloc, Name: "__btrc_retain",
			DependsOn: []string{CatDestroyed},
			CSource: `static void *__btrc_retain(void *obj, int *rc) {
    if (obj && rc) { (*rc)++; }
    return obj;
}`,
		},
	}
}

func stringHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatString, Name: "__btrc_strdup",
			DependsOn: []string{CatAlloc},
			CSource: `static char *__btrc_strdup(const char *s) {
    if (!s) return NULL;
    size_t n = strlen(s) + 1;
    char *out = __btrc_alloc(n);
    memcpy(out, s, n);
    return out;
}`,
		},
		{
			Category: CatString, Name: "__btrc_strcat",
			DependsOn: []string{CatAlloc},
			CSource: `static char *__btrc_strcat(const char *a, const char *b) {
    size_t la = a ? strlen(a) : 0, lb = b ? strlen(b) : 0;
    char *out = __btrc_alloc(la + lb + 1);
    if (a) memcpy(out, a, la);
    if (b) memcpy(out + la, b, lb);
    return out;
}`,
		},
		{
			Category: CatString, Name: "__btrc_trim",
			DependsOn: []string{CatAlloc},
			CSource: `static char *__btrc_trim(const char *s) {
    if (!s) return __btrc_strdup("");
    while (*s && isspace((unsigned char)*s)) s++;
    size_t n = strlen(s);
    while (n > 0 && isspace((unsigned char)s[n - 1])) n--;
    char *out = __btrc_alloc(n + 1);
    memcpy(out, s, n);
    return out;
}`,
		},
		{
			Category: CatString, Name: "__btrc_fmt_bool",
			CSource: `static const char *__btrc_fmt_bool(bool v) { return v ? "true" : "false"; }`,
		},
	}
}

func hashHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatHash, Name: "__btrc_hash_string",
			CSource: `static unsigned long __btrc_hash_string(const char *s) {
    unsigned long h = 5381;
    int c;
    while (s && (c = (unsigned char)*s++)) h = ((h << 5) + h) + (unsigned long)c;
    return h;
}`,
		},
		{
			Category: CatHash, Name: "__btrc_hash_int",
			CSource: `static unsigned long __btrc_hash_int(long v) { return (unsigned long)v * 2654435761UL; }`,
		},
	}
}

// destroyedHelpers back the "destroyed-set gating" phase of ARC's
// four-phase cyclic release: an object already torn down during this
// scope's release sweep must not be torn down a second time if a
// sibling field still points at it.
func destroyedHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatDestroyed, Name: "__btrc_destroyed_set",
			DependsOn: []string{CatAlloc},
			CSource: `typedef struct __btrc_destroyed_set {
    void **items;
    size_t count;
    size_t cap;
} __btrc_destroyed_set;

static void __btrc_destroyed_init(__btrc_destroyed_set *set) {
    set->items = NULL; set->count = 0; set->cap = 0;
}

static int __btrc_destroyed_contains(__btrc_destroyed_set *set, void *p) {
    for (size_t i = 0; i < set->count; i++) if (set->items[i] == p) return 1;
    return 0;
}

static void __btrc_destroyed_add(__btrc_destroyed_set *set, void *p) {
    if (set->count == set->cap) {
        size_t newcap = set->cap ? set->cap * 2 : 8;
        set->items = realloc(set->items, newcap * sizeof(void *));
        set->cap = newcap;
    }
    set->items[set->count++] = p;
}

static void __btrc_destroyed_free(__btrc_destroyed_set *set) {
    free(set->items);
}`,
		},
	}
}

// cycleHelpers implement trial cycle collection: from the set of
// objects flagged IsCyclable still alive after scope-exit reference
// counting, decrement internal references tentatively, destroy
// anything that drops to zero, then restore counts for survivors
// (spec §4.6).
func cycleHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatCycle, Name: "__btrc_cycle_suspect",
			DependsOn: []string{CatAlloc, CatDestroyed},
			CSource: `typedef struct __btrc_cycle_node {
    void *obj;
    void (*trial_release)(void *);
    void (*trial_restore)(void *);
    void (*destroy)(void *);
    int *rc;
} __btrc_cycle_node;

typedef struct __btrc_cycle_roots {
    __btrc_cycle_node *items;
    size_t count;
    size_t cap;
} __btrc_cycle_roots;

static __btrc_cycle_roots __btrc_cycle_pending = {0};

static void __btrc_cycle_suspect(void *obj, void (*trial_release)(void *),
                                  void (*trial_restore)(void *), void (*destroy)(void *), int *rc) {
    if (!obj) return;
    if (__btrc_cycle_pending.count == __btrc_cycle_pending.cap) {
        size_t newcap = __btrc_cycle_pending.cap ? __btrc_cycle_pending.cap * 2 : 8;
        __btrc_cycle_pending.items = realloc(__btrc_cycle_pending.items, newcap * sizeof(__btrc_cycle_node));
        __btrc_cycle_pending.cap = newcap;
    }
    __btrc_cycle_pending.items[__btrc_cycle_pending.count++] =
        (__btrc_cycle_node){obj, trial_release, trial_restore, destroy, rc};
}`,
		},
		{
			Category: CatCycle, Name: "__btrc_cycle_collect",
			DependsOn: []string{CatCycle, CatDestroyed},
			CSource: `static void __btrc_cycle_collect(void) {
    __btrc_destroyed_set destroyed;
    __btrc_destroyed_init(&destroyed);
    for (size_t i = 0; i < __btrc_cycle_pending.count; i++) {
        __btrc_cycle_node *n = &__btrc_cycle_pending.items[i];
        if (n->trial_release) n->trial_release(n->obj);
    }
    for (size_t i = 0; i < __btrc_cycle_pending.count; i++) {
        __btrc_cycle_node *n = &__btrc_cycle_pending.items[i];
        if (n->rc && *n->rc <= 0 && !__btrc_destroyed_contains(&destroyed, n->obj)) {
            __btrc_destroyed_add(&destroyed, n->obj);
            if (n->destroy) n->destroy(n->obj);
        }
    }
    for (size_t i = 0; i < __btrc_cycle_pending.count; i++) {
        __btrc_cycle_node *n = &__btrc_cycle_pending.items[i];
        if (!__btrc_destroyed_contains(&destroyed, n->obj) && n->trial_restore) {
            n->trial_restore(n->obj);
        }
    }
    __btrc_destroyed_free(&destroyed);
    __btrc_cycle_pending.count = 0;
}`,
		},
	}
}

func tryCatchHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatTryCatch, Name: "__btrc_exc_frame",
			CSource: `#include <setjmp.h>

typedef struct __btrc_exc_frame {
    jmp_buf buf;
    struct __btrc_exc_frame *prev;
    void *thrown;
    const char *thrown_type;
} __btrc_exc_frame;

static __thread __btrc_exc_frame *__btrc_exc_top = NULL;

static void __btrc_exc_push(__btrc_exc_frame *f) {
    f->prev = __btrc_exc_top;
    f->thrown = NULL;
    f->thrown_type = NULL;
    __btrc_exc_top = f;
}

static void __btrc_exc_pop(void) {
    if (__btrc_exc_top) __btrc_exc_top = __btrc_exc_top->prev;
}`,
		},
		{
			Category: CatTryCatch, Name: "__btrc_throw",
			DependsOn: []string{CatTryCatch},
			CSource: `static void __btrc_throw(void *value, const char *type_name) {
    if (!__btrc_exc_top) {
        fprintf(stderr, "btrc: uncaught exception of type %s\n", type_name ? type_name : "?");
        exit(1);
    }
    __btrc_exc_top->thrown = value;
    __btrc_exc_top->thrown_type = type_name;
    longjmp(__btrc_exc_top->buf, 1);
}`,
		},
	}
}

func threadHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatThread, Name: "__btrc_thread_spawn",
			DependsOn: []string{CatAlloc},
			CSource: `#include <pthread.h>

typedef struct __btrc_thread_handle {
    pthread_t t;
} __btrc_thread_handle;

static __btrc_thread_handle *__btrc_thread_spawn(void *(*fn)(void *), void *arg) {
    __btrc_thread_handle *h = __btrc_alloc(sizeof(__btrc_thread_handle));
    pthread_create(&h->t, NULL, fn, arg);
    return h;
}`,
		},
		{
			Category: CatThread, Name: "__btrc_thread_join",
			CSource: `static void __btrc_thread_join(__btrc_thread_handle *h) {
    if (h) pthread_join(h->t, NULL);
}`,
		},
	}
}

func mutexHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatMutex, Name: "__btrc_mutex_new",
			DependsOn: []string{CatAlloc, CatThread},
			CSource: `typedef struct __btrc_mutex {
    pthread_mutex_t m;
    void *value;
} __btrc_mutex;

static __btrc_mutex *__btrc_mutex_new(void *init) {
    __btrc_mutex *m = __btrc_alloc(sizeof(__btrc_mutex));
    pthread_mutex_init(&m->m, NULL);
    m->value = init;
    return m;
}`,
		},
		{
			Category: CatMutex, Name: "__btrc_mutex_lock",
			CSource: `static void *__btrc_mutex_lock(__btrc_mutex *m) { pthread_mutex_lock(&m->m); return m->value; }`,
		},
		{
			Category: CatMutex, Name: "__btrc_mutex_unlock",
			CSource: `static void __btrc_mutex_unlock(__btrc_mutex *m) { pthread_mutex_unlock(&m->m); }`,
		},
	}
}

// gpuHelpers back `parallel for` lowering (gen_gpu.go): a
// kernel-launch shim that runs the lifted loop body serially when no
// accelerator backend is configured, so a parallel loop is portable C
// rather than a hard CUDA/OpenCL dependency.
func gpuHelpers() []*ir.HelperDecl {
	return []*ir.HelperDecl{
		{
			Category: CatGPU, Name: "__btrc_gpu_dispatch",
			CSource: `static void __btrc_gpu_dispatch(long n, void (*body)(long, void *), void *ctx) {
    /* No accelerator backend configured: run the kernel body serially. */
    for (long i = 0; i < n; i++) body(i, ctx);
}`,
		},
	}
}
